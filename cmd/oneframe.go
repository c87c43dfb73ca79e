package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mlog "github.com/cadubentzen/gamescope-recorder/internal/logging"
	"github.com/cadubentzen/gamescope-recorder/pkg/codec/vaapi"
	"github.com/cadubentzen/gamescope-recorder/pkg/frame"
	"github.com/cadubentzen/gamescope-recorder/pkg/libva"
)

const (
	oneframeWidth  = 1920
	oneframeHeight = 1080
)

func newOneframeCmd() *cobra.Command {
	var device string
	var output string

	cmd := &cobra.Command{
		Use:   "oneframe",
		Short: "Encode a single synthetic 1080p frame and write the bitstream to a file",
		Long: "Encodes one 1920x1080 checkerboard test frame through the VA-API hardware " +
			"encoder at constant QP 26 and writes the resulting Annex B access unit " +
			"(SPS, PPS and one IDR slice) to the output file. Useful as a smoke test " +
			"for the encode stack without any capture hardware.",
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runOneframe(device, output)
		},
	}
	cmd.Flags().StringVar(&device, "device", defaultDRMNode, "DRM render node to encode on")
	cmd.Flags().StringVarP(&output, "output", "o", "output.h264", "output bitstream path")
	return cmd
}

func runOneframe(device, output string) error {
	logger := mlog.NewLogger("oneframe")

	dpy, err := libva.Open(device)
	if err != nil {
		return err
	}
	defer dpy.Close()

	params, err := vaapi.NewParams()
	if err != nil {
		return err
	}
	enc, err := vaapi.NewEncoder(dpy, oneframeWidth, oneframeHeight, params)
	if err != nil {
		return err
	}
	defer enc.Close()

	ef, err := enc.Encode(frame.Checkerboard(oneframeWidth, oneframeHeight))
	if err != nil {
		return err
	}

	if err := os.WriteFile(output, ef.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	logger.Infof("wrote %d bytes to %s", len(ef.Data), output)
	return nil
}
