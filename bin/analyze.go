package main

import (
	"context"
	"fmt"

	kingpin "gopkg.in/alecthomas/kingpin.v2"

	"github.com/Dhanushkumar2/computer-forensic/artifacts"
	"github.com/Dhanushkumar2/computer-forensic/json"
)

var (
	analyze_cmd = app.Command(
		"analyze", "Run anomaly analysis over a case's artifacts.")

	analyze_case = analyze_cmd.Arg(
		"case_id", "Case to analyze.").Required().String()

	analyze_fetch = analyze_cmd.Flag(
		"latest", "Fetch the latest report instead of running a new analysis.").
		Bool()

	analyze_json = analyze_cmd.Flag(
		"json", "Emit the report as json.").Bool()
)

func doAnalyze() {
	service := makeService()
	defer service.Close()

	ctx := context.Background()

	var report *artifacts.AnomalyReport
	var err error
	if *analyze_fetch {
		report, err = service.LatestReport(ctx, *analyze_case)
		kingpin.FatalIfError(err, "Fetching report")
		if report == nil {
			kingpin.Fatalf("Case %v has no report yet", *analyze_case)
		}
	} else {
		report, err = service.Analyze(ctx, *analyze_case)
		kingpin.FatalIfError(err, "Analyzing case")
	}

	if *analyze_json {
		fmt.Println(string(json.MustMarshalIndent(report)))
		return
	}

	fmt.Printf("Case %v analyzed at %v\n", report.CaseId,
		report.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  risk:      %v (score %.1f)\n",
		report.RiskLevel, report.OverallRiskScore)
	fmt.Printf("  anomalies: %d of %d activities\n",
		report.AnomaliesDetected, report.TotalActivities)
	fmt.Printf("  model accuracy: %.2f\n", report.ModelAccuracy)

	if len(report.CriticalIndicators) > 0 {
		fmt.Println("  critical indicators:")
		for _, indicator := range report.CriticalIndicators {
			fmt.Printf("    - %v\n", indicator)
		}
	}
	if len(report.Recommendations) > 0 {
		fmt.Println("  recommendations:")
		for _, recommendation := range report.Recommendations {
			fmt.Printf("    - %v\n", recommendation)
		}
	}
}

func init() {
	command_handlers = append(command_handlers, func(command string) bool {
		if command == analyze_cmd.FullCommand() {
			doAnalyze()
			return true
		}
		return false
	})
}
