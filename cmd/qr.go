package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"employee-timesheet/internal/config"
)

// Generate static QR code for printing
func genQr(url, filePath string) error {
	qrCode, err := qrcode.Encode(url, qrcode.Medium, config.QR_IMAGE_SIZE)
	if err != nil {
		return fmt.Errorf("error generating QR code: %w", err)
	}

	// Save the QR code to a file
	if err := os.WriteFile(filePath, qrCode, 0644); err != nil {
		return fmt.Errorf("error saving QR code: %w", err)
	}
	slog.Debug("QR code saved successfully", "file_path", filePath, "url", url)
	return nil
}

var qrCmd = &cobra.Command{
	Use:   "qr",
	Short: "Write a QR code linking to the access request page",
	Long:  `Write a PNG QR code for the access request page, or for the support URL with --support. Needs an absolute base_url.`,
	Run: func(cmd *cobra.Command, args []string) {
		out, _ := cmd.Flags().GetString("out")
		support, _ := cmd.Flags().GetBool("support")

		url := strings.TrimSuffix(cfg.BaseURL, "/") + "/request-access"
		if support {
			url = cfg.SupportURL
		}
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			fail("QR codes need an absolute URL, got %q. Set base_url to the public address.", url)
		}

		if err := genQr(url, out); err != nil {
			fail("%v", err)
		}
		fmt.Printf("QR code for %s written to %s\n", url, out)
	},
}

func init() {
	qrCmd.Flags().StringP("out", "o", "request_access_qr.png", "output PNG file")
	qrCmd.Flags().Bool("support", false, "encode the support URL instead")
	rootCmd.AddCommand(qrCmd)
}
