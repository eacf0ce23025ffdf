package cli

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/plantcare/internal/api"
)

// maxImageSize matches the server's identify body limit minus base64 growth.
const maxImageSize = 7 << 20

func newIdentifyCommand(a *App) *cobra.Command {
	var (
		lat, lon float64
		health   bool
	)
	cmd := &cobra.Command{
		Use:   "identify <image-path|image-url>",
		Short: "Identify a plant from a photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := identifyRequest(args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("lat") {
				req.Latitude = &lat
			}
			if cmd.Flags().Changed("lon") {
				req.Longitude = &lon
			}
			req.Health = health

			res, err := a.identify.Identify(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printResult(a, res, printIdentification)
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude where the photo was taken")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude where the photo was taken")
	cmd.Flags().BoolVar(&health, "health", false, "also assess plant health")
	return cmd
}

func identifyRequest(src string) (api.IdentifyRequest, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return api.IdentifyRequest{ImageURL: src}, nil
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return api.IdentifyRequest{}, err
	}
	if len(data) > maxImageSize {
		return api.IdentifyRequest{}, fmt.Errorf("image %s is larger than %d MiB", src, maxImageSize>>20)
	}
	return api.IdentifyRequest{ImageBase64: base64.StdEncoding.EncodeToString(data)}, nil
}
