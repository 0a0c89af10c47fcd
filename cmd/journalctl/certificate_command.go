package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newCertificateCommand(ctx *commandContext) *cobra.Command {
	var lang, outPath string

	cmd := &cobra.Command{
		Use:   "certificate <id>",
		Short: "Download the publication certificate of a published submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			api, err := ctx.apiClient()
			if err != nil {
				return err
			}
			if lang == "" {
				lang = cfg.Locale
			}
			if outPath == "" {
				outPath = fmt.Sprintf("certificate_%d.pdf", id)
			}

			body, err := api.Certificate(cmd.Context(), id, lang)
			if err != nil {
				return err
			}
			defer body.Close()

			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("create %s: %w", outPath, err)
			}
			n, err := io.Copy(f, body)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				os.Remove(outPath)
				return fmt.Errorf("write certificate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d bytes)\n", outPath, n)
			return nil
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "", "Certificate language (en, uz, ru)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (default certificate_<id>.pdf)")
	return cmd
}
