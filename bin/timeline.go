package main

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	kingpin "gopkg.in/alecthomas/kingpin.v2"

	"github.com/Dhanushkumar2/computer-forensic/artifacts"
	"github.com/Dhanushkumar2/computer-forensic/json"
)

var (
	timeline_cmd = app.Command(
		"timeline", "Show the chronological timeline for a case.")

	timeline_case = timeline_cmd.Arg(
		"case_id", "Case to show.").Required().String()

	timeline_start = timeline_cmd.Flag(
		"start", "Only events at or after this time.").String()

	timeline_end = timeline_cmd.Flag(
		"end", "Only events at or before this time.").String()

	timeline_type = timeline_cmd.Flag(
		"type", "Only events of this artifact type.").String()

	timeline_json = timeline_cmd.Flag(
		"json", "Emit events as json.").Bool()
)

func doTimeline() {
	service := makeService()
	defer service.Close()

	events, err := service.QueryTimeline(context.Background(),
		*timeline_case, *timeline_start, *timeline_end,
		artifacts.Type(*timeline_type))
	kingpin.FatalIfError(err, "Querying timeline")

	if *timeline_json {
		fmt.Println(string(json.MustMarshalIndent(events)))
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Timestamp", "Type", "Event"})
	for _, event := range events {
		table.Append([]string{
			event.Timestamp.Format("2006-01-02 15:04:05"),
			string(event.Type),
			event.Message,
		})
	}
	table.Render()
	fmt.Printf("%d events\n", len(events))
}

func init() {
	command_handlers = append(command_handlers, func(command string) bool {
		if command == timeline_cmd.FullCommand() {
			doTimeline()
			return true
		}
		return false
	})
}
