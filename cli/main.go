package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/bbernhard/radiology-playground/analysis"
	"github.com/bbernhard/radiology-playground/commons"
	"github.com/bbernhard/radiology-playground/inference"
	"github.com/bbernhard/radiology-playground/render"
)

type options struct {
	image       string
	predictions string
	all         bool
	selectLabel string
	radar       string
}

func (o *options) register(fs *flag.FlagSet) {
	fs.StringVar(&o.image, "image", "", "Image to analyze with the inference api")
	fs.StringVar(&o.predictions, "predictions", "", "Saved inference api response to render instead")
	fs.BoolVar(&o.all, "all", false, "Show every class instead of the top ones")
	fs.StringVar(&o.selectLabel, "select", "", "Class to select instead of the top ranked one")
	fs.StringVar(&o.radar, "radar", "", "Write the radar chart as html to this file")
}

// load fills session from a saved response or from the inference api.
func load(ctx context.Context, cfg commons.Config, opts options, session *analysis.Session) error {
	if opts.predictions != "" {
		data, err := os.ReadFile(opts.predictions)
		if err != nil {
			return errors.Wrap(err, "couldn't read predictions")
		}
		res, err := inference.ParseResponse(data)
		if err != nil {
			return errors.Wrap(err, "couldn't parse predictions")
		}
		set, err := inference.ToPredictionSet(res)
		if err != nil {
			return err
		}
		if err := session.Begin(opts.predictions, ""); err != nil {
			return err
		}
		session.Load(opts.predictions, set)
		return nil
	}

	data, err := os.ReadFile(opts.image)
	if err != nil {
		return errors.Wrap(err, "couldn't read image")
	}
	image, err := inference.Preprocess(data, cfg.Inference.MaxImageDimension)
	if err != nil {
		return err
	}
	client := inference.NewClient(cfg.Inference.URL, inference.Options{
		Timeout:    cfg.Inference.Timeout,
		RetryCount: cfg.Inference.RetryCount,
	})
	return session.Run(ctx, client, opts.image, image, "")
}

func run(ctx context.Context, args []string, out io.Writer) error {
	var opts options
	cfg, err := commons.LoadConfig("cli", args, opts.register)
	if err != nil {
		return err
	}
	commons.SetupLogging(cfg)

	if (opts.image == "") == (opts.predictions == "") {
		return errors.New("exactly one of -image or -predictions is required")
	}

	session := analysis.NewSession(cfg.Policy)
	if err := load(ctx, cfg, opts, session); err != nil {
		return err
	}

	if opts.selectLabel != "" {
		if err := session.Select(opts.selectLabel); err != nil {
			return err
		}
	}
	if opts.all {
		if _, err := session.ToggleExpanded(); err != nil {
			return err
		}
	}

	view := session.Present().View
	fmt.Fprint(out, render.Table(*view))
	fmt.Fprint(out, render.Legend())
	if view.ActiveLabel != "" {
		fmt.Fprintf(out, "Heatmap: %s\n", view.ActiveLabel)
	}

	if opts.radar != "" {
		f, err := os.Create(opts.radar)
		if err != nil {
			return errors.Wrap(err, "couldn't create radar file")
		}
		defer f.Close()
		if err := render.RadarHTML(f, "Predictions", view.Radar); err != nil {
			return errors.Wrap(err, "couldn't render radar chart")
		}
	}
	return nil
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		log.Error("[Main] ", err.Error())
		os.Exit(1)
	}
}
