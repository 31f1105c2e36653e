package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/medtravel/directory/internal/adapters/cache"
	cmsadapter "github.com/medtravel/directory/internal/adapters/cms"
	"github.com/medtravel/directory/internal/adapters/database"
	"github.com/medtravel/directory/internal/adapters/events"
	"github.com/medtravel/directory/internal/adapters/export"
	"github.com/medtravel/directory/internal/application/services"
	"github.com/medtravel/directory/internal/domain/entities"
	"github.com/medtravel/directory/internal/evaluation"
	"github.com/medtravel/directory/internal/infrastructure/clients/cms"
	"github.com/medtravel/directory/internal/infrastructure/clients/postgres"
	"github.com/medtravel/directory/internal/infrastructure/clients/redis"
	"github.com/medtravel/directory/internal/search"
	"github.com/medtravel/directory/pkg/config"
)

// snapshotSource is shared by every read command: a live CMS fetch, or a
// snapshot previously written by `export` when --from is set.
type snapshotSource struct {
	from string
}

func (s *snapshotSource) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.from, "from", "", "Read a gzip JSON snapshot file instead of fetching the CMS")
}

func (s *snapshotSource) load(ctx context.Context) (*entities.CMSData, error) {
	if s.from != "" {
		f, err := os.Open(s.from)
		if err != nil {
			return nil, fmt.Errorf("opening snapshot: %w", err)
		}
		defer f.Close()
		return export.DecodeSnapshot(f)
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return fetchSnapshot(ctx, cfg)
}

func fetchSnapshot(ctx context.Context, cfg *config.Config) (*entities.CMSData, error) {
	if cfg.CMS.APIKey == "" || cfg.CMS.SiteID == "" {
		return nil, fmt.Errorf("CMS_API_KEY and CMS_SITE_ID are required")
	}
	fetcher := cmsadapter.NewFetcher(cms.NewClient(&cfg.CMS), cfg.CMS.PageSize)
	return services.NewCMSDataService(fetcher, nil, cfg.Cache).GetAllCMSData(ctx)
}

// filterFlags exposes the directory filter dimensions as --<key>-id / --<key>
type filterFlags struct {
	ids     map[search.FilterKey]*string
	queries map[search.FilterKey]*string
}

func bindFilterFlags(cmd *cobra.Command, keys ...search.FilterKey) *filterFlags {
	f := &filterFlags{
		ids:     map[search.FilterKey]*string{},
		queries: map[search.FilterKey]*string{},
	}
	for _, k := range keys {
		f.ids[k] = cmd.Flags().String(string(k)+"-id", "", fmt.Sprintf("Exact %s id", k))
		f.queries[k] = cmd.Flags().String(string(k), "", fmt.Sprintf("Case-insensitive %s text match", k))
	}
	return f
}

// state applies the primary filters first, in order, so conflicting
// primaries resolve the way the website does: the later one wins. Secondary
// filters are applied afterwards and always survive.
func (f *filterFlags) state(view search.View) search.FilterState {
	state := search.FilterState{View: view}
	for _, primaryPass := range []bool{true, false} {
		for _, k := range search.AllFilterKeys {
			idPtr, ok := f.ids[k]
			if !ok || search.IsPrimary(k) != primaryPass {
				continue
			}
			value := search.FilterValue{ID: *idPtr, Query: *f.queries[k]}
			if value.Active() {
				state = search.EnforceOnePrimaryFilter(k, state, value)
			}
		}
	}
	return state
}

func newSnapshotCmd() *cobra.Command {
	var (
		source  snapshotSource
		asJSON  bool
		outFile string
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Fetch and aggregate every CMS collection, then print a summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			start := time.Now()
			data, err := source.load(ctx)
			if err != nil {
				return err
			}

			if outFile != "" {
				f, err := os.Create(outFile)
				if err != nil {
					return fmt.Errorf("creating %s: %w", outFile, err)
				}
				defer f.Close()
				if err := export.EncodeSnapshot(f, data); err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "Wrote %s\n", outFile)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), data)
			}
			printSummary(cmd.OutOrStdout(), data, time.Since(start))
			return nil
		},
	}

	source.bind(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full snapshot as JSON")
	cmd.Flags().StringVarP(&outFile, "output", "o", "", "Also write the snapshot as gzip JSON to this file")
	return cmd
}

func newDoctorsCmd() *cobra.Command {
	var (
		source snapshotSource
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "doctors",
		Short: "List doctors with every hospital and branch they practise at",
	}
	filters := bindFilterFlags(cmd, search.FilterDoctor, search.FilterSpecialization, search.FilterTreatment, search.FilterCity)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		data, err := source.load(ctx)
		if err != nil {
			return err
		}
		doctors := search.GetMatchingDoctors(data.Doctors, filters.state(search.ViewDoctors), data.Treatments)
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), doctors)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSPECIALIZATION\tLOCATIONS")
		for _, d := range doctors {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.ID, d.DoctorName, specializationList(d.Specialization), doctorLocations(d.Locations))
		}
		return w.Flush()
	}

	source.bind(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func newTreatmentsCmd() *cobra.Command {
	var (
		source snapshotSource
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "treatments",
		Short: "List treatments with per-branch pricing",
	}
	filters := bindFilterFlags(cmd, search.FilterTreatment, search.FilterCity, search.FilterDepartment)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		data, err := source.load(ctx)
		if err != nil {
			return err
		}
		treatments := search.GetMatchingTreatments(data.Treatments, filters.state(search.ViewTreatments))
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), treatments)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCOST\tBRANCH\tBRANCH COST")
		for _, t := range treatments {
			if len(t.BranchesAvailableAt) == 0 {
				fmt.Fprintf(w, "%s\t%s\t%s\t-\t-\n", t.ID, t.Name, t.Cost)
				continue
			}
			for i, loc := range t.BranchesAvailableAt {
				id, name, cost := t.ID, t.Name, t.Cost
				if i > 0 {
					id, name, cost = "", "", ""
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", id, name, cost, locationName(loc.HospitalName, loc.BranchName), loc.Cost)
			}
		}
		return w.Flush()
	}

	source.bind(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var (
		source snapshotSource
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Free-text search across hospitals, branches, doctors and treatments",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			data, err := source.load(ctx)
			if err != nil {
				return err
			}

			hits := search.SearchSnapshot(data, strings.Join(args, " "))
			page := search.PageOf(hits, search.NewPagination(0, limit))

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tID\tNAME\tDETAIL")
			for _, h := range page {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", h.Type, h.ID, h.Name, h.Subtitle)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d results\n", len(page), len(hits))
			return nil
		},
	}

	source.bind(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum results to print")
	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		bucket string
		key    string
		region string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Build a snapshot and upload it to S3 as gzip JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if bucket == "" {
				bucket = cfg.Export.Bucket
			}
			if region == "" {
				region = cfg.Export.Region
			}

			exporter, err := export.NewS3Exporter(ctx, bucket, region)
			if err != nil {
				return err
			}
			data, err := fetchSnapshot(ctx, cfg)
			if err != nil {
				return err
			}

			location, err := exporter.Export(ctx, data, key)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), location)
			return nil
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "", "S3 bucket (default EXPORT_S3_BUCKET)")
	cmd.Flags().StringVar(&key, "key", "", "Object key (default snapshots/cms-<timestamp>.json.gz)")
	cmd.Flags().StringVar(&region, "region", "", "AWS region (default EXPORT_S3_REGION)")
	return cmd
}

func newInvalidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate",
		Short: "Drop the shared snapshot from Redis so every API instance rebuilds",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			redisClient, err := redis.NewClient(ctx, &cfg.Redis)
			if err != nil {
				return err
			}
			defer redisClient.Close()

			bus := events.NewRedisEventBus(redisClient)
			defer bus.Close()

			svc := services.NewCMSDataService(nil, cache.NewRedisAdapter(redisClient), cfg.Cache).WithEventBus(bus)
			if err := svc.Invalidate(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Invalidated %s\n", svc.CacheKey())
			return nil
		},
	}
}

func newZeroResultsCmd() *cobra.Command {
	var (
		since time.Duration
		limit int
	)

	cmd := &cobra.Command{
		Use:   "zero-results",
		Short: "List the searches that most often found nothing",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			pgClient, err := postgres.NewClient(ctx, &cfg.Database)
			if err != nil {
				return err
			}
			defer pgClient.Close()

			analytics := services.NewSearchAnalyticsService(database.NewSearchAnalyticsAdapter(pgClient))
			queries, err := analytics.GetZeroResultQueries(ctx, time.Now().Add(-since), limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "QUERY\tCOUNT\tLAST SEEN")
			for _, q := range queries {
				fmt.Fprintf(w, "%s\t%d\t%s\n", q.NormalizedQuery, q.Count, q.LastSeen.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}

	cmd.Flags().DurationVar(&since, "since", 7*24*time.Hour, "How far back to look")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum queries to print")
	return cmd
}

func newEvalCmd() *cobra.Command {
	var (
		source     snapshotSource
		golden     string
		thresholds evaluation.Thresholds
	)

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Score free-text search against a golden query set",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			queries, err := evaluation.LoadGoldenQueries(golden)
			if err != nil {
				return err
			}
			data, err := source.load(ctx)
			if err != nil {
				return err
			}

			summary, err := evaluation.NewRunner(evaluation.SnapshotSearcher{Data: data}).Run(ctx, queries)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tQUERY\tRECALL@10\tMRR@10\tHITS")
			for _, r := range summary.Results {
				if r.Err != nil {
					fmt.Fprintf(w, "%s\t%s\terror: %v\t\t\n", r.QueryID, r.Query, r.Err)
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t%d\n", r.QueryID, r.Query, r.RecallAt10, r.MRRAt10, r.ResultCount)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d queries, %d with hits: recall@10 %.3f, mrr@10 %.3f\n",
				summary.TotalQueries, summary.QueriesWithHits, summary.AvgRecallAt10, summary.AvgMRRAt10)

			return thresholds.Check(summary)
		},
	}

	source.bind(cmd)
	cmd.Flags().StringVar(&golden, "golden", "", "Golden query set (JSON)")
	cmd.Flags().Float64Var(&thresholds.MinRecallAt10, "min-recall", 0, "Fail when average recall@10 is lower")
	cmd.Flags().Float64Var(&thresholds.MinMRRAt10, "min-mrr", 0, "Fail when average mrr@10 is lower")
	_ = cmd.MarkFlagRequired("golden")
	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSummary(w io.Writer, data *entities.CMSData, took time.Duration) {
	standalone, branches := 0, 0
	for _, h := range data.Hospitals {
		if h.IsStandalone {
			standalone++
		}
		branches += len(h.Branches)
	}

	fmt.Fprintf(w, "Snapshot built %s in %s\n", data.LastUpdated.Format(time.RFC3339), took.Round(time.Millisecond))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "  hospitals\t%d\t(%d standalone)\n", data.TotalHospitals, standalone)
	fmt.Fprintf(tw, "  branches\t%d\t\n", branches)
	fmt.Fprintf(tw, "  doctors\t%d\t\n", data.TotalDoctors)
	fmt.Fprintf(tw, "  treatments\t%d\t\n", data.TotalTreatments)
	tw.Flush()
}

func specializationList(specs []entities.Specialization) string {
	names := make([]string, 0, len(specs))
	for _, s := range specs {
		names = append(names, s.Name)
	}
	return strings.Join(names, ", ")
}

func doctorLocations(locations []entities.DoctorLocation) string {
	names := make([]string, 0, len(locations))
	for _, l := range locations {
		names = append(names, locationName(l.HospitalName, l.BranchName))
	}
	return strings.Join(names, "; ")
}

func locationName(hospital, branch string) string {
	if branch == "" || branch == hospital {
		return hospital
	}
	return hospital + " / " + branch
}

// whereFlags builds a CMS query filter from repeatable field=value flags
type whereFlags struct {
	eq       []string
	contains []string
	hasSome  []string
}

func (w *whereFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&w.eq, "eq", nil, "field=value exact match (repeatable)")
	cmd.Flags().StringArrayVar(&w.contains, "contains", nil, "field=text substring match (repeatable)")
	cmd.Flags().StringArrayVar(&w.hasSome, "has-some", nil, "field=v1,v2 reference or list overlap (repeatable)")
}

func (w *whereFlags) filter() (cms.Filter, error) {
	var parts []cms.Filter
	for _, group := range []struct {
		flag  string
		exprs []string
		build func(field, value string) cms.Filter
	}{
		{"eq", w.eq, func(f, v string) cms.Filter { return cms.Eq(f, v) }},
		{"contains", w.contains, cms.Contains},
		{"has-some", w.hasSome, func(f, v string) cms.Filter {
			var values []any
			for _, item := range strings.Split(v, ",") {
				if item = strings.TrimSpace(item); item != "" {
					values = append(values, item)
				}
			}
			return cms.HasSome(f, values...)
		}},
	} {
		for _, expr := range group.exprs {
			field, value, ok := strings.Cut(expr, "=")
			field = strings.TrimSpace(field)
			if !ok || field == "" {
				return nil, fmt.Errorf("--%s %q: expected field=value", group.flag, expr)
			}
			parts = append(parts, group.build(field, value))
		}
	}
	return cms.And(parts...), nil
}

func newRecordsCmd() *cobra.Command {
	var where whereFlags

	cmd := &cobra.Command{
		Use:   "records <collection>",
		Short: "Print raw CMS items of one collection as JSON",
		Example: "  cmsctl records HospitalMaster --contains hospitalName=apollo\n" +
			"  cmsctl records BranchesMaster --has-some city=c1,c2",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			filter, err := where.filter()
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.CMS.APIKey == "" || cfg.CMS.SiteID == "" {
				return fmt.Errorf("CMS_API_KEY and CMS_SITE_ID are required")
			}

			fetcher := cmsadapter.NewFetcher(cms.NewClient(&cfg.CMS), cfg.CMS.PageSize)
			records, err := fetcher.FetchMatching(ctx, args[0], filter)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(records); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d records\n", len(records))
			return nil
		},
	}

	where.bind(cmd)
	return cmd
}
