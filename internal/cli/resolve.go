package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/vparse/vparse/internal/api"
	apperrors "github.com/vparse/vparse/internal/errors"
	"github.com/vparse/vparse/internal/parser"
)

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().IntP("line", "l", 0, "Index of the candidate to try first")
	resolveCmd.Flags().BoolP("json", "j", false, "Print the result as JSON")
}

var resolveCmd = &cobra.Command{
	Use:     "resolve <url>",
	Short:   "Resolve a single video page URL",
	Example: "vparse resolve v.qq.com/x/cover/abc.html --line 1",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx := context.Background()
		a, err := newApp(ctx, cfg, os.Stderr)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.parser.Parse(ctx, parser.Request{
			URL:            args[0],
			PreferredIndex: lo.Must(cmd.Flags().GetInt("line")),
		})

		if lo.Must(cmd.Flags().GetBool("json")) {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err != nil {
				var appErr *apperrors.AppError
				if !errors.As(err, &appErr) {
					appErr = apperrors.InternalError(apperrors.MessageInternalError)
				}
				_ = enc.Encode(apperrors.ErrorResponse{Code: appErr.Code, Message: appErr.Message})
				return err
			}
			return enc.Encode(api.ParseResponse{Success: true, Data: res})
		}

		if err != nil {
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) {
				return errors.New(appErr.Message)
			}
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.URL)
		return nil
	},
}
