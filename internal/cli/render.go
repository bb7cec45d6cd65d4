package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/roach88/insightdash/internal/api"
)

// table writes header and rows as aligned columns.
func table(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

// field is one line of a detail view.
type field struct {
	name, value string
}

func fields(w io.Writer, fs ...field) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, f := range fs {
		fmt.Fprintf(tw, "%s:\t%s\n", f.name, f.value)
	}
	return tw.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func joinOr(parts []string, empty string) string {
	if len(parts) == 0 {
		return empty
	}
	return strings.Join(parts, ",")
}

func percent(n int) string {
	return strconv.Itoa(n) + "%"
}

func dashboardRows(ds []api.Dashboard) [][]string {
	rows := make([][]string, 0, len(ds))
	for _, d := range ds {
		rows = append(rows, []string{d.ID, d.Name, strconv.Itoa(len(d.Tiles)), yesNo(d.IsPublic), joinOr(d.Tags, "-")})
	}
	return rows
}

func renderDashboards(w io.Writer, ds []api.Dashboard) error {
	if len(ds) == 0 {
		_, err := fmt.Fprintln(w, "No dashboards.")
		return err
	}
	return table(w, []string{"ID", "NAME", "TILES", "PUBLIC", "TAGS"}, dashboardRows(ds))
}

func renderDashboard(w io.Writer, d api.Dashboard) error {
	if err := fields(w,
		field{"ID", d.ID},
		field{"Name", d.Name},
		field{"Description", orDash(d.Description)},
		field{"Tags", joinOr(d.Tags, "-")},
		field{"Public", yesNo(d.IsPublic)},
		field{"Favorites", strconv.Itoa(d.Favorites)},
		field{"Created", d.CreatedAt + " by " + d.CreatedBy},
	); err != nil {
		return err
	}
	if len(d.Tiles) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	rows := make([][]string, 0, len(d.Tiles))
	for _, t := range d.Tiles {
		rows = append(rows, []string{t.ID, t.Type, t.Title, orDash(t.Config.DatasetID)})
	}
	return table(w, []string{"TILE", "TYPE", "TITLE", "DATASET"}, rows)
}

func renderDatasets(w io.Writer, ds []api.Dataset) error {
	if len(ds) == 0 {
		_, err := fmt.Fprintln(w, "No datasets.")
		return err
	}
	rows := make([][]string, 0, len(ds))
	for _, d := range ds {
		rows = append(rows, []string{d.ID, d.Name, humanize.Comma(int64(d.Rows)), humanize.Bytes(uint64(d.Size)), d.UploadedAt})
	}
	return table(w, []string{"ID", "NAME", "ROWS", "SIZE", "UPLOADED"}, rows)
}

func renderDatasetDetail(w io.Writer, detail api.DatasetDetail) error {
	d := detail.Dataset
	return fields(w,
		field{"ID", d.ID},
		field{"Name", d.Name},
		field{"File", d.SourceFileName + " (" + d.Mime + ")"},
		field{"Rows", humanize.Comma(int64(d.Rows))},
		field{"Size", humanize.Bytes(uint64(d.Size))},
		field{"Columns", joinOr(d.Columns, "-")},
		field{"Uploaded", d.UploadedAt + " by " + d.UploadedBy},
		field{"Preview", strconv.Itoa(len(detail.Preview.Rows)) + " rows"},
	)
}

func renderJob(w io.Writer, j api.AnalysisJob) error {
	return fields(w,
		field{"ID", j.ID},
		field{"Dataset", j.DatasetID},
		field{"Status", j.Status},
		field{"Progress", percent(j.Progress)},
		field{"Started", j.StartedAt},
		field{"Finished", orDash(j.FinishedAt)},
		field{"Summary", orDash(j.Summary)},
	)
}

func renderJobs(w io.Writer, jobs []api.AnalysisJob) error {
	if len(jobs) == 0 {
		_, err := fmt.Fprintln(w, "No analyses.")
		return err
	}
	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		rows = append(rows, []string{j.ID, j.DatasetID, j.Status, percent(j.Progress), j.StartedAt})
	}
	return table(w, []string{"ID", "DATASET", "STATUS", "PROGRESS", "STARTED"}, rows)
}

func renderUsers(w io.Writer, users []api.User) error {
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		roles := make([]string, 0, len(u.Roles))
		for _, r := range u.Roles {
			roles = append(roles, r.Name)
		}
		rows = append(rows, []string{u.ID, u.Name, u.Email, joinOr(roles, "-")})
	}
	return table(w, []string{"ID", "NAME", "EMAIL", "ROLES"}, rows)
}

func renderAuditLogs(w io.Writer, logs []api.AuditLog) error {
	rows := make([][]string, 0, len(logs))
	for _, l := range logs {
		target := l.TargetType + "/" + l.TargetID
		rows = append(rows, []string{l.ID, l.ActorName, l.Action, target, l.CreatedAt})
	}
	return table(w, []string{"ID", "ACTOR", "ACTION", "TARGET", "CREATED"}, rows)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
