package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func tokenCommand(deps Deps) *cobra.Command {
	var (
		user  string
		admin bool
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an operator access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := deps.Tokens()
			if err != nil {
				return err
			}
			token, exp, err := tokens.GenerateAccessToken(user, admin)
			if err != nil {
				return fmt.Errorf("failed to issue token: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", time.Unix(exp, 0).UTC().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Operator identity stored in the token subject")
	cmd.Flags().BoolVar(&admin, "admin", false, "Grant admin privileges")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
