package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mlog "github.com/cadubentzen/gamescope-recorder/internal/logging"
	"github.com/cadubentzen/gamescope-recorder/pkg/capture"
	"github.com/cadubentzen/gamescope-recorder/pkg/codec/vaapi"
	"github.com/cadubentzen/gamescope-recorder/pkg/libva"
	"github.com/cadubentzen/gamescope-recorder/pkg/rtpout"
)

type recordOptions struct {
	device string
	output string

	source  string
	camera  string
	display int
	width   int
	height  int

	frameRate float32
	bitRate   int
	keyInt    uint32
	duration  time.Duration

	rtpAddr        string
	rtpPayloadType uint8
}

func newRecordCmd() *cobra.Command {
	var opts recordOptions

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Capture frames and encode them to an H.264 stream",
		Long: "Captures frames from the screen, a V4L2 camera or a synthetic test " +
			"pattern, encodes them with the VA-API hardware encoder, and writes the " +
			"Annex B stream to a file and/or sends it over RTP. Stops after the " +
			"requested duration or on interrupt.",
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runRecord(opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.device, "device", defaultDRMNode, "DRM render node to encode on")
	f.StringVarP(&opts.output, "output", "o", "output.h264", "output bitstream path, empty to disable")
	f.StringVarP(&opts.source, "source", "s", "screen", "frame source: screen, camera or pattern")
	f.StringVar(&opts.camera, "camera", "/dev/video0", "V4L2 device for the camera source")
	f.IntVar(&opts.display, "display", 0, "display index for the screen source")
	f.IntVar(&opts.width, "width", 0, "capture width, 0 for the source native size")
	f.IntVar(&opts.height, "height", 0, "capture height, 0 for the source native size")
	f.Float32Var(&opts.frameRate, "framerate", 30, "frames per second")
	f.IntVar(&opts.bitRate, "bitrate", 10_000_000, "target bitrate in bits per second")
	f.Uint32Var(&opts.keyInt, "keyint", 60, "IDR frame interval in frames")
	f.DurationVarP(&opts.duration, "duration", "d", 0, "stop after this long, 0 to run until interrupted")
	f.StringVar(&opts.rtpAddr, "rtp", "", "also send the stream over RTP to host:port")
	f.Uint8Var(&opts.rtpPayloadType, "rtp-payload-type", 96, "RTP dynamic payload type")
	return cmd
}

func openSource(opts recordOptions) (capture.Source, error) {
	switch opts.source {
	case "screen":
		return capture.NewScreen(opts.display, opts.width, opts.height)
	case "camera":
		return capture.NewCamera(opts.camera, opts.width, opts.height)
	case "pattern":
		w, h := opts.width, opts.height
		if w == 0 && h == 0 {
			w, h = 1920, 1080
		}
		return capture.NewPattern(w, h)
	}
	return nil, fmt.Errorf("unknown source %q, want screen, camera or pattern", opts.source)
}

func runRecord(opts recordOptions) error {
	if opts.output == "" && opts.rtpAddr == "" {
		return fmt.Errorf("nothing to do: both --output and --rtp are disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	logger := mlog.NewLogger("record")

	src, err := openSource(opts)
	if err != nil {
		return err
	}
	defer src.Close()
	width, height := src.Size()

	dpy, err := libva.Open(opts.device)
	if err != nil {
		return err
	}
	defer dpy.Close()

	params, err := vaapi.NewParams()
	if err != nil {
		return err
	}
	params.FrameRate = opts.frameRate
	params.BitRate = opts.bitRate
	params.KeyFrameInterval = opts.keyInt

	enc, err := vaapi.NewEncoder(dpy, width, height, params)
	if err != nil {
		return err
	}
	defer enc.Close()

	var out *os.File
	if opts.output != "" {
		out, err = os.Create(opts.output)
		if err != nil {
			return err
		}
		defer out.Close()
	}

	var sender *rtpout.Sender
	if opts.rtpAddr != "" {
		sender, err = rtpout.NewSender(opts.rtpAddr, opts.rtpPayloadType, opts.frameRate)
		if err != nil {
			return err
		}
		defer sender.Close()
	}

	logger.Infof("recording %s %dx%d at %v fps", opts.source, width, height, opts.frameRate)

	interval := time.Duration(float64(time.Second) / float64(opts.frameRate))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	frames := 0
	bytesOut := 0
	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			logger.Infof("stopping after %d frames, %d bytes in %v",
				frames, bytesOut, time.Since(start).Round(time.Millisecond))
			return nil
		case <-ticker.C:
		}

		f, err := src.ReadFrame()
		if err != nil {
			return err
		}
		ef, err := enc.Encode(f)
		if err != nil {
			return err
		}

		if out != nil {
			if _, err := out.Write(ef.Data); err != nil {
				return err
			}
		}
		if sender != nil {
			if err := sender.Send(ef.Data); err != nil {
				return err
			}
		}
		frames++
		bytesOut += len(ef.Data)
	}
}
