package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nhle/mailmigrate/internal/model"
	"github.com/nhle/mailmigrate/internal/normalize"
	"github.com/nhle/mailmigrate/internal/theme"
)

const displayDate = "2006-01-02"

func renderScanResult(w io.Writer, res *model.ScanResult) {
	fmt.Fprintln(w, theme.HeaderStyle.Render("Scan "+res.ScanRunID))

	t := theme.NewTable("Status", "Scanned", "Services", "Migrated", "Stored", "Estimated dates", "Skipped", "Took")
	t.Row(
		theme.ScanStatusStyle(res.Status).Render(res.Status),
		strconv.Itoa(res.EmailsScanned),
		strconv.Itoa(res.ServicesFound),
		strconv.Itoa(res.ServicesMigrated),
		strconv.Itoa(res.EmailsStored),
		strconv.Itoa(res.DatesEstimated),
		strconv.Itoa(res.RecordsSkipped),
		res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond).String(),
	)
	fmt.Fprintln(w, t.Render())

	for _, e := range res.Errors {
		fmt.Fprintln(w, theme.ErrorStyle.Render("! "+e))
	}
}

func renderServices(w io.Writer, services []model.Service) {
	if len(services) == 0 {
		fmt.Fprintln(w, theme.HelpStyle.Render("No services found. Run `mailmigrate scan` first."))
		return
	}

	t := theme.NewTable("Service", "Email", "Category", "Priority", "Status", "Emails", "Last email", "New email")
	for _, s := range services {
		t.Row(
			normalize.Truncate(s.Name, 30),
			s.EmailAddress,
			s.Category,
			theme.PriorityStyle(s.Priority).Render(s.Priority),
			theme.StatusStyle(s.Status).Render(s.Status),
			strconv.Itoa(s.EmailsReceived),
			formatDate(s.LastEmailDate),
			s.NewEmail,
		)
	}
	fmt.Fprintln(w, t.Render())
}

func renderStatusCounts(w io.Writer, counts map[string]int) {
	order := []string{model.StatusPending, model.StatusInProgress, model.StatusMigrated, model.StatusSkipped}

	line := ""
	for i, status := range order {
		if i > 0 {
			line += "  "
		}
		line += theme.StatusStyle(status).Render(fmt.Sprintf("%s %d", status, counts[status]))
	}
	fmt.Fprintln(w, line)
}

func renderEmails(w io.Writer, svc *model.Service, records []model.EmailRecord) {
	fmt.Fprintln(w, theme.HeaderStyle.Render(fmt.Sprintf("%s <%s>", svc.Name, svc.EmailAddress)))
	if len(records) == 0 {
		fmt.Fprintln(w, theme.HelpStyle.Render("No stored messages for this service."))
		return
	}

	t := theme.NewTable("Received", "Subject", "To", "Read")
	for _, r := range records {
		read := ""
		if r.IsRead {
			read = "yes"
		}
		t.Row(
			r.ReceivedAt.Local().Format(time.DateTime),
			normalize.Truncate(r.Subject, 60),
			r.RecipientEmail,
			read,
		)
	}
	fmt.Fprintln(w, t.Render())
}

func renderScanRuns(w io.Writer, runs []model.ScanRun, total int) {
	fmt.Fprintln(w, theme.HeaderStyle.Render(fmt.Sprintf("Scan runs (%d emails scanned in total)", total)))
	if len(runs) == 0 {
		fmt.Fprintln(w, theme.HelpStyle.Render("No scans recorded yet."))
		return
	}

	t := theme.NewTable("Run at", "Status", "Scanned", "Services")
	for _, r := range runs {
		t.Row(
			r.RunAt.Local().Format(time.DateTime),
			theme.ScanStatusStyle(r.Status).Render(r.Status),
			strconv.Itoa(r.EmailsScanned),
			strconv.Itoa(r.ServicesFound),
		)
	}
	fmt.Fprintln(w, t.Render())
}

func renderHistory(w io.Writer, changes []model.StatusChange) {
	fmt.Fprintln(w, theme.HeaderStyle.Render("Status changes"))
	if len(changes) == 0 {
		fmt.Fprintln(w, theme.HelpStyle.Render("No status changes yet."))
		return
	}

	t := theme.NewTable("Changed at", "Service", "Domain", "From", "To", "Notes")
	for _, c := range changes {
		t.Row(
			c.ChangedAt.Local().Format(time.DateTime),
			normalize.Truncate(c.ServiceName, 30),
			c.ServiceDomain,
			c.OldStatus,
			theme.StatusStyle(c.NewStatus).Render(c.NewStatus),
			c.Notes,
		)
	}
	fmt.Fprintln(w, t.Render())
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(displayDate)
}
