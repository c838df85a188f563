package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rmera/mdtrj"
	"github.com/rmera/mdtrj/store"
	"github.com/rmera/mdtrj/traj/stf"
	"github.com/rmera/mdtrj/trjstat"
	v3 "github.com/rmera/mdtrj/v3"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func f4(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func (a *app) unwrapCmd() *cobra.Command {
	var output, method string
	var center bool
	cmd := &cobra.Command{
		Use:   "unwrap [trajectory]",
		Short: "make the molecules whole across the periodic boundaries and write the result",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = a.job.Output
			}
			if output == "" {
				return errors.New("unwrap: no output file given")
			}
			t, err := a.load(args)
			if err != nil {
				return err
			}
			opts := a.job.Options()
			if method != "" {
				if method != mdtrj.BFS && method != mdtrj.Sorted {
					return fmt.Errorf("unwrap: unknown method %q", method)
				}
				opts.Method(method)
			}
			if cmd.Flags().Changed("center") {
				opts.Center(center)
			}
			frames, top, err := a.unwrapped(t, opts)
			if err != nil {
				return err
			}
			header := make(map[string]string, len(t.header)+1)
			for k, v := range t.header {
				header[k] = v
			}
			header["unwrapped"] = opts.Method()
			w, err := stf.NewWriter(output, top.Atoms, header)
			if err != nil {
				return err
			}
			for i, f := range frames {
				box := top.Box
				if i < len(t.boxes) && t.boxes[i] != (mdtrj.Box{}) {
					box = t.boxes[i]
				}
				if err := w.WNextBox(f, box); err != nil {
					w.Close()
					return err
				}
			}
			if err := w.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d unwrapped frames to %s\n", len(frames), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output trajectory (default: the job's output)")
	cmd.Flags().StringVar(&method, "method", "", "unwrapping method: bfs or sorted (default: the job's)")
	cmd.Flags().BoolVar(&center, "center", false, "put the centroid of each frame at the origin")
	return cmd
}

func (a *app) gyrationCmd() *cobra.Command {
	var stats, unwrap bool
	var dbPath string
	cmd := &cobra.Command{
		Use:   "gyration [trajectory...]",
		Short: "gyration tensor shape descriptors for each frame",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			trajs, err := a.loadAll(args)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("unwrap") {
				unwrap = a.job.Unwrap.Enabled
			}
			opts := a.job.Options()
			frames := make([][]*v3.Matrix, len(trajs))
			for i, t := range trajs {
				frames[i] = t.frames
				switch {
				case unwrap && a.hasBox(t):
					if frames[i], _, err = a.unwrapped(t, opts); err != nil {
						return err
					}
				case unwrap:
					log.Warn().Str("trajectory", t.name).Msg("no periodic box available, frames are not unwrapped")
				}
			}
			all, err := mdtrj.GyrationTrajs(frames, []mdtrj.MassProfile{a.job.MassProfile()}, []mdtrj.Selection{a.job.AtomSelection()}, opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, series := range all {
				writeTitle(out, trajs, i)
				if err := writeGyration(out, series); err != nil {
					return err
				}
				if stats {
					if err := writeStats(out, series); err != nil {
						return err
					}
				}
			}
			if dbPath == "" {
				dbPath = a.job.Database
			}
			if dbPath == "" {
				return nil
			}
			db, err := store.Open(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()
			for i, series := range all {
				id, err := db.SaveGyration(trajs[i].name, series)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "stored run %s for %s in %s\n", id, trajs[i].name, dbPath)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&stats, "stats", false, "print summary statistics of the descriptors")
	cmd.Flags().BoolVar(&unwrap, "unwrap", true, "unwrap the frames first (default: the job's value)")
	cmd.Flags().StringVar(&dbPath, "db", "", "store the results in this SQLite database (default: the job's)")
	return cmd
}

// writeTitle names the trajectory i of trajs, when there is more than one.
func writeTitle(out io.Writer, trajs []*trajectory, i int) {
	if len(trajs) > 1 {
		fmt.Fprintf(out, "trajectory: %s\n", trajs[i].name)
	}
}

func writeGyration(out io.Writer, series *mdtrj.GyrationSeries) error {
	w := newTable(out)
	fmt.Fprintln(w, "FRAME\tATOMS\tRG\tASPHERICITY\tACYLINDRICITY\tANISOTROPY\tTAN2XY\tTAN2XZ\tTAN2YZ\tDEGENERATE")
	for i := 0; i < series.Len(); i++ {
		S := series.Shape(i)
		if S == nil {
			fmt.Fprintf(w, "%d\t-\t-\t-\t-\t-\t-\t-\t-\t-\n", i)
			continue
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n", i, S.Atoms, f4(S.Rg), f4(S.Asphericity),
			f4(S.Acylindricity), f4(S.Anisotropy), f4(S.Tan2XG[0]), f4(S.Tan2XG[1]), f4(S.Tan2XG[2]), S.Degenerate)
	}
	return w.Flush()
}

func writeStats(out io.Writer, series *mdtrj.GyrationSeries) error {
	w := newTable(out)
	fmt.Fprintln(w, "DESCRIPTOR\tN\tSKIPPED\tMEAN\tSD\tMIN\tMAX")
	descriptors := []struct {
		name   string
		series []float64
	}{
		{"rg", series.Rg()},
		{"asphericity", series.Asphericity()},
		{"acylindricity", series.Acylindricity()},
		{"anisotropy", series.Anisotropy()},
	}
	for _, d := range descriptors {
		s, err := trjstat.Summarize(d.series)
		if errors.Is(err, trjstat.ErrNoData) {
			fmt.Fprintf(w, "%s\t0\t%d\t-\t-\t-\t-\n", d.name, len(d.series))
			continue
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\t%s\t%s\n", d.name, s.N, s.Skipped, f4(s.Mean), f4(s.StdDev), f4(s.Min), f4(s.Max))
	}
	return w.Flush()
}

// parsePair reads a pair of atom ids written as "i,j".
func parsePair(s string) ([2]int, error) {
	var p [2]int
	first, second, ok := strings.Cut(s, ",")
	if !ok {
		return p, fmt.Errorf("pair %q must be written as i,j", s)
	}
	var err error
	if p[0], err = strconv.Atoi(strings.TrimSpace(first)); err != nil {
		return p, fmt.Errorf("pair %q: %w", s, err)
	}
	if p[1], err = strconv.Atoi(strings.TrimSpace(second)); err != nil {
		return p, fmt.Errorf("pair %q: %w", s, err)
	}
	return p, nil
}

func (a *app) distanceCmd() *cobra.Command {
	var pairFlags []string
	var contact float64
	cmd := &cobra.Command{
		Use:   "distance [trajectory...]",
		Short: "distances between pairs of atoms in each frame",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs := a.job.AtomPairs()
			if len(pairFlags) > 0 {
				pairs = nil
				for _, s := range pairFlags {
					p, err := parsePair(s)
					if err != nil {
						return err
					}
					pairs = append(pairs, p)
				}
			}
			if len(pairs) == 0 {
				return errors.New("distance: no atom pairs given")
			}
			if cmd.Flags().Changed("contact") && !(contact > 0) {
				return fmt.Errorf("distance: the contact cutoff must be positive, got %g", contact)
			}
			trajs, err := a.loadAll(args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for ti, t := range trajs {
				d, err := mdtrj.Distances(t.frames, pairs)
				if err != nil {
					return err
				}
				writeTitle(out, trajs, ti)
				w := newTable(out)
				fmt.Fprint(w, "FRAME")
				for _, p := range pairs {
					fmt.Fprintf(w, "\t%d-%d", p[0], p[1])
				}
				fmt.Fprintln(w)
				for i := range t.frames {
					fmt.Fprint(w, i)
					for j := range pairs {
						fmt.Fprintf(w, "\t%s", f4(d[j][i]))
					}
					fmt.Fprintln(w)
				}
				if err := w.Flush(); err != nil {
					return err
				}
				if contact > 0 {
					if err := writeContactPeriods(out, t.name, pairs, d, contact); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&pairFlags, "pair", "p", nil, "atom pair i,j (repeatable; default: the job's pairs)")
	cmd.Flags().Float64Var(&contact, "contact", 0, "print the period, in frames, of the contacts closer than this distance")
	return cmd
}

// writeContactPeriods prints, for each pair, the period of the square wave that is 1
// in the frames where the pair is closer than cutoff.
func writeContactPeriods(out io.Writer, name string, pairs [][2]int, d [][]float64, cutoff float64) error {
	w := newTable(out)
	fmt.Fprintln(w, "PAIR\tCONTACT_PERIOD")
	for j, p := range pairs {
		T, err := trjstat.SquareWavePeriod(trjstat.Contacts(d[j], cutoff))
		if errors.Is(err, trjstat.ErrNoFullCycle) {
			log.Warn().Str("trajectory", name).Ints("pair", p[:]).Msg("no complete contact cycle, the period is undefined")
			fmt.Fprintf(w, "%d-%d\t-\n", p[0], p[1])
			continue
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d-%d\t%s\n", p[0], p[1], f4(T))
	}
	return w.Flush()
}

func (a *app) rcmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rcm [trajectory...]",
		Short: "center of mass of each frame",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			trajs, err := a.loadAll(args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for ti, t := range trajs {
				centers, err := mdtrj.CentersOfMass(t.frames, a.job.MassProfile())
				if err != nil {
					return err
				}
				writeTitle(out, trajs, ti)
				w := newTable(out)
				fmt.Fprintln(w, "FRAME\tX\tY\tZ")
				for i, c := range centers {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i, f4(c[0]), f4(c[1]), f4(c[2]))
				}
				if err := w.Flush(); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (a *app) areaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "area [trajectory...]",
		Short: "area and normal of the closed curve through the selected atoms, in each frame",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			trajs, err := a.loadAll(args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for ti, t := range trajs {
				surfaces, warnings, err := mdtrj.ClosedCurves(t.frames, a.job.AtomSelection())
				if err != nil {
					return err
				}
				if len(warnings) > 0 {
					log.Warn().Str("trajectory", t.name).Int("frames", len(warnings)).Msg("frames with degenerate curves")
				}
				writeTitle(out, trajs, ti)
				w := newTable(out)
				fmt.Fprintln(w, "FRAME\tAREA\tNX\tNY\tNZ")
				for i, S := range surfaces {
					if S == nil {
						fmt.Fprintf(w, "%d\t-\t-\t-\t-\n", i)
						continue
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i, f4(S.Area), f4(S.Normal[0]), f4(S.Normal[1]), f4(S.Normal[2]))
				}
				if err := w.Flush(); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (a *app) runsCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "list the analysis runs stored in a database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				dbPath = a.job.Database
			}
			if dbPath == "" {
				return errors.New("runs: no database given")
			}
			db, err := store.Open(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()
			runs, err := db.Runs()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no runs found")
				return nil
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tSOURCE\tFRAMES\tFAILED\tCREATED")
			for _, r := range runs {
				created := time.Unix(0, r.CreatedAtNs).Format(time.RFC3339)
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", r.ID, r.Source, r.Frames, r.Failed, created)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database (default: the job's)")
	return cmd
}
