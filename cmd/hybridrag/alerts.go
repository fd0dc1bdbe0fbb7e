// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/hybridrag/internal/errors"
	"github.com/kraklabs/hybridrag/internal/output"
	"github.com/kraklabs/hybridrag/internal/ui"
)

// runAlerts implements `hybridrag alerts [list|summary|ack <id>]` (§C's
// alert summary widget plus basic inspection/acknowledgement).
func runAlerts(args []string, e *env) {
	sub := "list"
	rest := args
	if len(args) > 0 {
		switch args[0] {
		case "list", "summary", "ack":
			sub, rest = args[0], args[1:]
		}
	}

	switch sub {
	case "summary":
		alertsSummary(e)
	case "ack":
		alertsAck(rest, e)
	default:
		alertsList(rest, e)
	}
}

func alertsSummary(e *env) {
	summary := e.alerts.GetSummary()
	if e.globals.JSON {
		_ = output.JSON(summary)
		return
	}
	ui.Header("Alert summary")
	fmt.Printf("  %s %d\n", ui.Label("Critical:"), summary.Critical)
	fmt.Printf("  %s %d\n", ui.Label("Error:"), summary.Error)
	fmt.Printf("  %s %d\n", ui.Label("Warning:"), summary.Warning)
	fmt.Printf("  %s %d\n", ui.Label("Info:"), summary.Info)
	fmt.Printf("  %s %d\n", ui.Label("Total:"), summary.Total)
}

func alertsList(args []string, e *env) {
	fs := flag.NewFlagSet("alerts", flag.ExitOnError)
	database := fs.String("database", "", "Filter to one database")
	includeAck := fs.Bool("include-acknowledged", false, "Include already-acknowledged alerts")
	_ = fs.Parse(args)

	list := e.alerts.All(*includeAck)
	if *database != "" {
		list = e.alerts.ByDatabase(*database, *includeAck)
	}

	if e.globals.JSON {
		_ = output.JSON(list)
		return
	}
	if len(list) == 0 {
		ui.Info("No alerts")
		return
	}
	ui.Header("Alerts")
	for _, a := range list {
		marker := ui.DimText("[ack]")
		if !a.Acknowledged {
			marker = ui.Yellow.Sprint("[open]")
		}
		fmt.Printf("  %s %-10s %-10s %s: %s\n", marker, a.Severity, a.Database, a.ID, a.Message)
	}
}

func alertsAck(args []string, e *env) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: hybridrag alerts ack <id>")
		os.Exit(errors.ExitConfig)
	}
	ok, err := e.alerts.Acknowledge(args[0])
	if err != nil {
		errors.FatalError(errors.NewRuntimeError("Cannot acknowledge alert", err.Error(), "Check the alerts store file", err), e.globals.JSON)
	}
	if !ok {
		errors.FatalError(errors.NewNotFoundError(
			fmt.Sprintf("No alert with id %q", args[0]),
			"the alert id does not exist in the store",
			"Run: hybridrag alerts list",
		), e.globals.JSON)
	}
	ui.Success("Acknowledged alert " + args[0])
}
