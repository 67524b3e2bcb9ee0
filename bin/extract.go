package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	kingpin "gopkg.in/alecthomas/kingpin.v2"

	"github.com/Dhanushkumar2/computer-forensic/artifacts"
)

var (
	extract_cmd = app.Command(
		"extract", "Run artifact extraction over a disk image.")

	extract_case = extract_cmd.Arg(
		"case_id", "Case to extract into.").Required().String()

	extract_image = extract_cmd.Arg(
		"image", "Path to the disk image (raw, split raw or EWF).").
		Required().ExistingFile()

	extract_wait = extract_cmd.Flag(
		"wait", "Block until the job reaches a terminal state.").
		Default("true").Bool()

	status_cmd = app.Command(
		"status", "Show the extraction job state for a case.")

	status_case = status_cmd.Arg(
		"case_id", "Case to inspect.").Required().String()

	cancel_cmd = app.Command(
		"cancel", "Request a running extraction job to stop.")

	cancel_case = cancel_cmd.Arg(
		"case_id", "Case whose job should stop.").Required().String()
)

func doExtract() {
	service := makeService()
	defer service.Close()

	ctx := context.Background()
	job_id, err := service.StartExtraction(
		ctx, *extract_case, *extract_image)
	kingpin.FatalIfError(err, "Starting extraction")

	fmt.Printf("Started job %v for case %v\n", job_id, *extract_case)
	if !*extract_wait {
		return
	}

	// Poll the way an external caller would.
	for {
		status, err := service.JobStatus(*extract_case)
		kingpin.FatalIfError(err, "Polling job")

		fmt.Printf("  %v: %v artifacts\n", status.Status,
			humanize.Comma(status.ArtifactsExtracted))
		if status.Status.IsTerminal() {
			printJobStatus(status)
			return
		}
		time.Sleep(2 * time.Second)
	}
}

func doStatus() {
	service := makeService()
	defer service.Close()

	status, err := service.JobStatus(*status_case)
	kingpin.FatalIfError(err, "Job status")
	printJobStatus(status)
}

func doCancel() {
	service := makeService()
	defer service.Close()

	err := service.CancelExtraction(*cancel_case)
	kingpin.FatalIfError(err, "Cancelling job")
	fmt.Printf("Cancellation requested for case %v\n", *cancel_case)
}

func printJobStatus(status *artifacts.JobStatus) {
	fmt.Printf("Job %v (case %v): %v\n",
		status.JobId, status.CaseId, status.Status)
	fmt.Printf("  artifacts extracted: %v\n",
		humanize.Comma(status.ArtifactsExtracted))

	if status.ErrorMessage != "" {
		fmt.Printf("  error: %v\n", status.ErrorMessage)
	}
	for _, warning := range status.Warnings {
		fmt.Printf("  warning: %v\n", warning)
	}
}

func init() {
	command_handlers = append(command_handlers, func(command string) bool {
		switch command {
		case extract_cmd.FullCommand():
			doExtract()
		case status_cmd.FullCommand():
			doStatus()
		case cancel_cmd.FullCommand():
			doCancel()
		default:
			return false
		}
		return true
	})
}
