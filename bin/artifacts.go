package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	kingpin "gopkg.in/alecthomas/kingpin.v2"

	"github.com/Dhanushkumar2/computer-forensic/artifacts"
	"github.com/Dhanushkumar2/computer-forensic/datastore"
	"github.com/Dhanushkumar2/computer-forensic/json"
)

var (
	artifacts_cmd = app.Command(
		"artifacts", "List extracted artifacts for a case.")

	artifacts_case = artifacts_cmd.Arg(
		"case_id", "Case to list.").Required().String()

	artifacts_type = artifacts_cmd.Arg(
		"type", "Artifact type to list (omit for per-type counts).").String()

	artifacts_match = artifacts_cmd.Flag(
		"match", "Substring filter on key or payload.").String()

	artifacts_limit = artifacts_cmd.Flag(
		"limit", "Maximum rows to return.").Default("50").Int64()

	artifacts_offset = artifacts_cmd.Flag(
		"offset", "Rows to skip (pagination).").Default("0").Int64()

	artifacts_json = artifacts_cmd.Flag(
		"json", "Emit full artifacts as json.").Bool()
)

func doArtifacts() {
	service := makeService()
	defer service.Close()

	ctx := context.Background()

	// Without a type argument show the per type counts.
	if *artifacts_type == "" {
		counts, err := service.ArtifactCounts(ctx, *artifacts_case)
		kingpin.FatalIfError(err, "Counting artifacts")

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Type", "Count"})
		for _, artifact_type := range artifacts.AllTypes() {
			count, pres := counts[artifact_type]
			if !pres {
				continue
			}
			table.Append([]string{
				string(artifact_type),
				humanize.Comma(count),
			})
		}
		table.Render()
		return
	}

	rows, err := service.ListArtifacts(ctx, *artifacts_case,
		artifacts.Type(*artifacts_type), datastore.QueryOptions{
			Limit:  *artifacts_limit,
			Offset: *artifacts_offset,
			Match:  *artifacts_match,
		})
	kingpin.FatalIfError(err, "Listing artifacts")

	if *artifacts_json {
		fmt.Println(string(json.MustMarshalIndent(rows)))
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Timestamp", "Description", "Source"})
	for _, artifact := range rows {
		timestamp := ""
		if artifact.HasTimestamp() {
			timestamp = artifact.Timestamp.Format("2006-01-02 15:04:05")
		}
		table.Append([]string{
			timestamp, artifact.Description(), artifact.Source,
		})
	}
	table.Render()
}

func init() {
	command_handlers = append(command_handlers, func(command string) bool {
		if command == artifacts_cmd.FullCommand() {
			doArtifacts()
			return true
		}
		return false
	})
}
