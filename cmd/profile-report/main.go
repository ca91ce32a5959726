// profile-report builds a velocity profile from a measurement table and
// prints the per-segment report, optionally rendering a PNG and an
// interactive HTML chart. Measurements come from a CSV file
// (frame_start,frame_end,distance per row) or from a stored project.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/banshee-data/motion.profile/internal/classify"
	"github.com/banshee-data/motion.profile/internal/config"
	"github.com/banshee-data/motion.profile/internal/db"
	"github.com/banshee-data/motion.profile/internal/profile"
	"github.com/banshee-data/motion.profile/internal/report"
	"github.com/banshee-data/motion.profile/internal/segment"
)

func main() {
	var csvPath string
	var dbPath string
	var projectID string
	var cfgPath string
	var pngPath string
	var htmlPath string
	var truthPath string

	flag.StringVar(&csvPath, "csv", "", "measurement CSV (frame_start,frame_end,distance)")
	flag.StringVar(&dbPath, "db", "motion_profile.db", "path to sqlite db")
	flag.StringVar(&projectID, "project", "", "project id to load measurements from")
	flag.StringVar(&cfgPath, "config", "", "tuning config JSON")
	flag.StringVar(&pngPath, "png", "", "write a PNG chart to this path")
	flag.StringVar(&htmlPath, "html", "", "write an interactive HTML chart to this path")
	flag.StringVar(&truthPath, "truth", "", "ground truth CSV (time,velocity) for error metrics")
	flag.Parse()

	if (csvPath == "") == (projectID == "") {
		log.Fatalf("exactly one of -csv or -project must be provided")
	}

	var cfg *config.TuningConfig
	if cfgPath != "" {
		var err error
		cfg, err = config.LoadTuningConfig(cfgPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
	}

	title := "Velocity Profile"
	var rows []segment.Raw

	if csvPath != "" {
		var err error
		rows, err = loadSegmentsCSV(csvPath)
		if err != nil {
			log.Fatalf("load measurements: %v", err)
		}
		title = csvPath
	} else {
		dbConn, err := db.NewDB(dbPath)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer dbConn.Close()

		project, err := dbConn.GetProject(projectID)
		if err != nil {
			log.Fatalf("load project: %v", err)
		}
		title = project.Name
		if cfg == nil {
			cfg = project.Settings
		}

		rows, err = dbConn.Rows(projectID)
		if err != nil {
			log.Fatalf("load measurements: %v", err)
		}
	}

	ctrl := profile.NewController(cfg)
	nodes, err := ctrl.PrepareInitialProfile(rows)
	if err != nil {
		log.Fatalf("build profile: %v", err)
	}
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}

	prof := ctrl.Profile()
	if result := profile.Verify(prof, cfg.GetVerifyTolerance()); !result.OK {
		log.Fatalf("distance conservation failed: %v", result.Mismatches)
	}

	printReport(nodes, classify.Classify(prof, cfg), cfg.GetUnits())

	data := report.ChartData{
		Title: title,
		Units: cfg.GetUnits(),
		Nodes: nodes,
		Steps: report.StepSeries(prof, cfg.GetUnits()),
	}

	if truthPath != "" {
		f, err := os.Open(truthPath)
		if err != nil {
			log.Fatalf("open ground truth: %v", err)
		}
		truth, err := report.ParseGroundTruthCSV(f)
		f.Close()
		if err != nil {
			log.Fatalf("parse ground truth: %v", err)
		}
		data.GroundTruth = truth

		m := report.Compare(nodes, truth)
		fmt.Printf("\nground truth: %d points, rmse=%.3f bias=%.3f max=%.3f (%s)\n",
			m.Points, m.RMSE, m.Bias, m.MaxAbs, cfg.GetUnits())
	}

	if pngPath != "" {
		if err := report.SavePNG(pngPath, data); err != nil {
			log.Fatalf("write png: %v", err)
		}
		fmt.Printf("wrote %s\n", pngPath)
	}

	if htmlPath != "" {
		f, err := os.Create(htmlPath)
		if err != nil {
			log.Fatalf("write html: %v", err)
		}
		if err := report.RenderChart(f, data); err != nil {
			f.Close()
			log.Fatalf("render chart: %v", err)
		}
		f.Close()
		fmt.Printf("wrote %s\n", htmlPath)
	}
}

func printReport(nodes []profile.Node, reports []classify.SegmentReport, units string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "node\ttime (s)\tvelocity (%s)\n", units)
	for i, n := range nodes {
		fmt.Fprintf(w, "%d\t%.3f\t%.2f\n", i, n.Time, n.Velocity)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "segment\tduration (s)\tavg vel (m/s)\taccel (m/s^2)\tend vel (m/s)\tlabel")
	for _, r := range reports {
		fmt.Fprintf(w, "%d\t%.3f\t%.2f\t%.2f\t%.2f\t%s\n",
			r.Segment, r.Duration, r.AvgVelocity, r.Acceleration, r.EndVelocity, r.Label)
	}
	w.Flush()
}

// loadSegmentsCSV reads a measurement table. A single non-numeric header row
// is tolerated; blank rows are kept and dropped later during validation.
func loadSegmentsCSV(path string) ([]segment.Raw, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var rows []segment.Raw
	for i, rec := range records {
		if len(rec) < 3 {
			return nil, fmt.Errorf("row %d: expected 3 columns, got %d", i+1, len(rec))
		}
		if i == 0 && !numericRow(rec) {
			continue // header
		}
		rows = append(rows, segment.Raw{
			FrameStart: segment.Field(strings.TrimSpace(rec[0])),
			FrameEnd:   segment.Field(strings.TrimSpace(rec[1])),
			Distance:   segment.Field(strings.TrimSpace(rec[2])),
		})
	}
	return rows, nil
}

func numericRow(rec []string) bool {
	for _, cell := range rec {
		f := segment.Field(strings.TrimSpace(cell))
		if f.IsBlank() {
			continue
		}
		if _, err := f.Float(); err != nil {
			return false
		}
	}
	return true
}
