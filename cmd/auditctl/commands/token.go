package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	jwttoken "pedcare/internal/jwt_token"
	"pedcare/internal/platform/config"
	audit "pedcare/pkg/platform/audit"
	"pedcare/pkg/requestcontext"
)

func TokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an owner token for local use",
		Long: `Mint an owner bearer token signed with the server's configured key.

The signing key and issuer are read the same way the server reads them
(PEDCARE_CONFIG, then JWT_SIGNING_KEY and JWT_ISSUER).

Examples:
  export PEDCARE_TOKEN=$(auditctl token)
  auditctl token --user-id owner-2 --ttl 15m`,
		Args:         cobra.NoArgs,
		RunE:         runToken,
		SilenceUsage: true,
	}
	cmd.Flags().String("user-id", "owner-1", "Subject of the token")
	cmd.Flags().String("email", "owner@pedcare.local", "Email claim")
	cmd.Flags().String("name", "Clinic Owner", "Full name claim")
	cmd.Flags().Duration("ttl", time.Hour, "Token lifetime")
	return cmd
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	ttl, _ := cmd.Flags().GetDuration("ttl")
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	var p requestcontext.Principal
	p.UserID, _ = cmd.Flags().GetString("user-id")
	p.Email, _ = cmd.Flags().GetString("email")
	p.FullName, _ = cmd.Flags().GetString("name")
	p.Role = audit.RoleOwner

	token, err := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer).GenerateAccessToken(p, ttl)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
