package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/wifi-outlet/internal/config"
	"github.com/sweeney/wifi-outlet/internal/schedule"
	"github.com/sweeney/wifi-outlet/internal/solar"
	"github.com/sweeney/wifi-outlet/internal/status"
	"github.com/sweeney/wifi-outlet/internal/store"
)

func newStateCmd(configFile *string) *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Print the running daemon's outlet state and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configFile, cmd.Flags())
			if err != nil {
				return err
			}
			if url == "" {
				if url, err = localStatusURL(cfg.HTTPAddr); err != nil {
					return err
				}
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			st, err := fetchStatus(ctx, url)
			if err != nil {
				return err
			}
			writeState(cmd.OutOrStdout(), st)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "status URL (default derived from --http)")
	return cmd
}

func newSunCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sun",
		Short: "Print today's sunrise, solar noon and sunset for the configured site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configFile, cmd.Flags())
			if err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			eph, err := solar.New(cfg.SolarSite())
			if err != nil {
				return err
			}
			today := time.Now().In(loc)
			writeSun(cmd.OutOrStdout(), eph.Site(), eph.Day(today.Year(), today.YearDay()), loc)
			return nil
		},
	}
}

func newCyclesCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cycles",
		Short: "List the stored cycles with today's resolution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configFile, cmd.Flags())
			if err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			db, err := store.Open(cmd.Context(), cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			schedCfg, err := storedSchedule(cmd.Context(), db, cfg)
			if err != nil {
				return err
			}
			// No jitter source: the listing shows the nominal edges.
			sched, err := schedule.New(schedCfg, loc, nil)
			if err != nil {
				return err
			}
			sched.Tick(schedule.ReadingAt(time.Now().In(loc), true))
			writeCycles(cmd.OutOrStdout(), status.BuildSchedule(sched.Status()))
			return nil
		},
	}
}

type scheduleLoader interface {
	Load(ctx context.Context) (schedule.Config, error)
}

// storedSchedule is loadSchedule without seeding, for read-only commands.
func storedSchedule(ctx context.Context, s scheduleLoader, cfg *config.Config) (schedule.Config, error) {
	seed, err := cfg.ScheduleSeed()
	if err != nil {
		return schedule.Config{}, err
	}
	saved, err := s.Load(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return seed, nil
	}
	if err != nil {
		return schedule.Config{}, err
	}
	saved.Site = seed.Site
	return saved, nil
}

// localStatusURL derives the daemon's JSON endpoint from its listen address.
func localStatusURL(addr string) (string, error) {
	if addr == "" {
		return "", errors.New("http server disabled; pass --url")
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("parse http address %q: %w", addr, err)
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + "/index.json", nil
}

func fetchStatus(ctx context.Context, url string) (status.StatusInner, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return status.StatusInner{}, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return status.StatusInner{}, fmt.Errorf("fetch status: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return status.StatusInner{}, fmt.Errorf("fetch status: %s", resp.Status)
	}
	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		return status.StatusInner{}, fmt.Errorf("decode status: %w", err)
	}
	return sj.Status, nil
}

func writeState(w io.Writer, st status.StatusInner) {
	sched := "disabled"
	if st.Schedule.Enabled {
		sched = "enabled"
	}
	clk := "unsynchronized"
	if st.ClockSynced {
		clk = "synchronized"
	}
	fmt.Fprintf(w, "Outlet: %s, schedule: %s, clock: %s\n", st.Outlet, sched, clk)
}

func writeSun(w io.Writer, site solar.Site, day solar.Day, loc *time.Location) {
	fmt.Fprintf(w, "Site:     %.4f, %.4f, %.0fm\n", site.Latitude, site.Longitude, site.Elevation)
	fmt.Fprintf(w, "Day:      %s\n", day.Kind)
	if day.Kind == solar.Normal {
		fmt.Fprintf(w, "Sunrise:  %s\n", day.Sunrise.In(loc).Format("15:04"))
	}
	fmt.Fprintf(w, "Noon:     %s\n", day.Noon.In(loc).Format("15:04"))
	if day.Kind == solar.Normal {
		fmt.Fprintf(w, "Sunset:   %s\n", day.Sunset.In(loc).Format("15:04"))
	}
	fmt.Fprintf(w, "Daylight: %s\n", day.Daylight().Truncate(time.Minute))
}

func writeCycles(w io.Writer, sj status.ScheduleJSON) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	state := "enabled"
	if !sj.Enabled {
		state = "disabled"
	}
	fmt.Fprintf(tw, "schedule %s\n", state)
	fmt.Fprintln(tw, "CYCLE\tSCOPE\tANCHOR\tON\tOFF\tTODAY")
	for _, c := range sj.Cycles {
		today := c.Reason
		if c.Active {
			today = c.OnAt + " - " + c.OffAt
		}
		rule := c.Rule
		if !rule.Enabled {
			fmt.Fprintf(tw, "%d\t-\t-\t-\t-\t%s\n", c.Index, today)
			continue
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", c.Index, rule.Scope, rule.Anchor, rule.On, rule.Off, today)
	}
	tw.Flush()
}
