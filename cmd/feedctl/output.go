package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"sgxfeed/internal/calendar"
	"sgxfeed/internal/model"
	"sgxfeed/internal/storage"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printReport(w io.Writer, format string, r *model.RunReport) error {
	if format == "json" {
		return printJSON(w, r)
	}

	fmt.Fprintf(w, "run %s for %s: success=%t\n", r.RunID, r.BusinessDate, r.Success)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tOUTCOME\tVERSION\tSIZE\tDETAIL")
	for _, f := range r.Files {
		version := "-"
		if f.Version > 0 {
			version = fmt.Sprintf("v%d", f.Version)
		}
		detail := f.Error
		if detail == "" {
			detail = strings.Join(f.Warnings, "; ")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", f.FileName, f.Outcome, version, f.Size, detail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, p := range r.Paths {
		fmt.Fprintf(w, "  %s\n", p)
	}
	return nil
}

func printVersions(w io.Writer, format string, items []model.VersionRecord) error {
	if format == "json" {
		return printJSON(w, items)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tFROM\tTO\tCURRENT\tDIGEST\tPATH")
	for _, v := range items {
		to := "-"
		if v.EffectiveTo != nil {
			to = calendar.Format(*v.EffectiveTo)
		}
		fmt.Fprintf(tw, "v%d\t%s\t%s\t%t\t%s\t%s\n",
			v.VersionNumber, calendar.Format(v.EffectiveFrom), to, v.IsCurrent, shortDigest(v.ContentDigest), v.StoragePath)
	}
	return tw.Flush()
}

func printObjects(w io.Writer, format string, items []storage.ObjectInfo) error {
	if format == "json" {
		return printJSON(w, items)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tSIZE\tMODIFIED")
	for _, o := range items {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", o.Key, o.Size, o.LastModified.Format("2006-01-02T15:04:05Z07:00"))
	}
	return tw.Flush()
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
