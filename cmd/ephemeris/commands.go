package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tau/gsync/internal/ephemeris"
	"github.com/tau/gsync/internal/julian"
	"github.com/tau/gsync/internal/logging"
	"github.com/tau/gsync/internal/observer"
	"github.com/tau/gsync/internal/orbit"
	"github.com/tau/gsync/internal/synctoken"
)

type options struct {
	lat, lon string
	format   string
	logLevel string
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "ephemeris [DD.MM.YYYY]",
		Short: "Compute simplified planetary positions for a date",
		Long: `Compute the approximate longitude, latitude and distance of the Sun,
Moon, Mercury, Venus, Mars, Jupiter, Saturn and the lunar node at noon UTC.

The model is a deliberately simplified Keplerian approximation, not an
astronomical ephemeris. Without a date argument today's UTC date is used.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			date := ephemeris.DateOf(time.Now()).String()
			if len(args) == 1 {
				date = args[0]
			}
			return runEphemeris(out, cmd.ErrOrStderr(), opts, date)
		},
	}

	root.PersistentFlags().StringVarP(&opts.format, "format", "f", "text", "output format: text, json or yaml")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	root.Flags().StringVar(&opts.lat, "lat", "", "observer latitude in degrees (-90..90)")
	root.Flags().StringVar(&opts.lon, "lon", "", "observer longitude in degrees, east positive (-180..180)")

	root.AddCommand(newTokenCmd(out, opts), newBodiesCmd(out, opts))
	return root
}

// runEphemeris writes the result for date to out. Diagnostics go to errOut
// so that out stays parseable.
func runEphemeris(out, errOut io.Writer, opts *options, date string) error {
	coords, err := observer.ParseCoordinates(opts.lat, opts.lon)
	if err != nil {
		return err
	}

	logger, closer := logging.New(opts.logLevel, errOut, logging.FileConfig{})
	defer closer.Close()

	res, err := ephemeris.NewService(logger).Compute(date, coords)
	if err != nil {
		return err
	}

	switch opts.format {
	case "json":
		return writeJSON(out, res)
	case "yaml":
		return writeYAML(out, res)
	case "text":
		return writeResultText(out, res)
	default:
		return fmt.Errorf("unknown format %q", opts.format)
	}
}

func newTokenCmd(out io.Writer, opts *options) *cobra.Command {
	var jd float64

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print the sync token for a Julian Day (default: now)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("jd") {
				jd = julian.FromTime(time.Now())
			}
			tok := synctoken.At(jd)
			view := tokenView{
				Label:        tok.Label(),
				JulianDay:    tok.JulianDay,
				Value:        tok.Value,
				Signature:    tok.Signature,
				PenroseSeed:  tok.PenroseSeed,
				HilbertDepth: tok.HilbertDepth,
				Rotation:     tok.Rotation,
			}

			switch opts.format {
			case "json":
				return writeJSON(out, view)
			case "yaml":
				return writeYAML(out, view)
			case "text":
				_, err := fmt.Fprintf(out, "%s\tjd=%.6f value=%.6f rotation=%.2f depth=%d\n",
					view.Label, view.JulianDay, view.Value, view.Rotation, view.HilbertDepth)
				return err
			default:
				return fmt.Errorf("unknown format %q", opts.format)
			}
		},
	}
	cmd.Flags().Float64Var(&jd, "jd", 0, "Julian Day")
	return cmd
}

func newBodiesCmd(out io.Writer, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "bodies",
		Short: "List tracked bodies and their orbital elements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows []bodyView
			for _, b := range orbit.Bodies() {
				row := bodyView{Name: b.String(), Model: "node-regression", Period: orbit.NodePeriod}
				if el, ok := orbit.ElementsOf(b); ok {
					row = bodyView{
						Name:              b.String(),
						Model:             "kepler",
						Period:            el.Period,
						Eccentricity:      el.Eccentricity,
						InclinationFactor: el.InclinationFactor,
						SemiMajorAxis:     el.SemiMajorAxis,
					}
				}
				rows = append(rows, row)
			}

			switch opts.format {
			case "json":
				return writeJSON(out, rows)
			case "yaml":
				return writeYAML(out, rows)
			case "text":
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "BODY\tMODEL\tPERIOD\tE\tINCL\tA")
				for _, r := range rows {
					fmt.Fprintf(tw, "%s\t%s\t%g\t%g\t%g\t%g\n",
						r.Name, r.Model, r.Period, r.Eccentricity, r.InclinationFactor, r.SemiMajorAxis)
				}
				return tw.Flush()
			default:
				return fmt.Errorf("unknown format %q", opts.format)
			}
		},
	}
}

type tokenView struct {
	Label        string  `json:"label" yaml:"label"`
	JulianDay    float64 `json:"julianDay" yaml:"julianDay"`
	Value        float64 `json:"value" yaml:"value"`
	Signature    float64 `json:"signature" yaml:"signature"`
	PenroseSeed  float64 `json:"penroseSeed" yaml:"penroseSeed"`
	HilbertDepth int     `json:"hilbertDepth" yaml:"hilbertDepth"`
	Rotation     float64 `json:"rotation" yaml:"rotation"`
}

type bodyView struct {
	Name              string  `json:"name" yaml:"name"`
	Model             string  `json:"model" yaml:"model"`
	Period            float64 `json:"period" yaml:"period"`
	Eccentricity      float64 `json:"eccentricity" yaml:"eccentricity"`
	InclinationFactor float64 `json:"inclinationFactor" yaml:"inclinationFactor"`
	SemiMajorAxis     float64 `json:"semiMajorAxis" yaml:"semiMajorAxis"`
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(out io.Writer, v any) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// writeResultText prints one row per body in tracking order, Earth last.
func writeResultText(out io.Writer, res *ephemeris.Result) error {
	fmt.Fprintf(out, "date %s  jd %s\n", res.Date, strconv.FormatFloat(res.JulianDay, 'f', 1, 64))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "BODY\tLON\tLAT\tDIST\tLON/DAY\tLAT/DAY\tDIST/DAY\t")

	names := make([]string, 0, len(res.Positions))
	for _, b := range orbit.Bodies() {
		names = append(names, b.String())
	}
	if _, ok := res.Positions[ephemeris.EarthName]; ok {
		names = append(names, ephemeris.EarthName)
	}
	for _, name := range names {
		p := res.Positions[name]
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.4f\t%.4f\t%.4f\t%.4f\t\n",
			name, p.Longitude, p.Latitude, p.Distance, p.LongitudeSpeed, p.LatitudeSpeed, p.DistanceSpeed)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if s := res.Observer; s != nil {
		fmt.Fprintf(out, "gmst %.4f  lst %.4f  zenith ra %.4f dec %.4f\n",
			s.GMST, s.LocalSiderealTime, s.Zenith.RightAscension, s.Zenith.Declination)
	}
	return nil
}
