package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nhle/mailmigrate/internal/model"
	"github.com/nhle/mailmigrate/internal/store"
)

type servicesCommand struct {
	Status   string `long:"status" description:"Filter by status" choice:"pending" choice:"in_progress" choice:"migrated" choice:"skipped"`
	Category string `long:"category" description:"Filter by category"`
	Priority string `long:"priority" description:"Filter by priority" choice:"high" choice:"medium" choice:"low"`
	Search   string `short:"s" long:"search" description:"Match name, domain or address"`
	Limit    int    `short:"n" long:"limit" default:"50" description:"Maximum rows, 0 for all"`
}

func (c *servicesCommand) Execute([]string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	services, err := a.Store.GetServices(ctx, c.filter())
	if err != nil {
		return err
	}
	counts, err := a.Store.StatusCounts(ctx)
	if err != nil {
		return err
	}

	renderServices(os.Stdout, services)
	renderStatusCounts(os.Stdout, counts)
	return nil
}

func (c *servicesCommand) filter() store.ServiceFilter {
	f := store.ServiceFilter{Limit: c.Limit}
	if c.Status != "" {
		f.Status = &c.Status
	}
	if c.Category != "" {
		f.Category = &c.Category
	}
	if c.Priority != "" {
		f.Priority = &c.Priority
	}
	if c.Search != "" {
		f.Search = &c.Search
	}
	return f
}

type emailsCommand struct {
	Limit int `short:"n" long:"limit" default:"20" description:"Maximum rows, 0 for all"`
	Args  struct {
		Email string `positional-arg-name:"SENDER" required:"yes"`
	} `positional-args:"yes"`
}

func (c *emailsCommand) Execute([]string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	svc, err := a.Store.GetServiceByEmail(ctx, c.Args.Email)
	if err != nil {
		return err
	}
	records, err := a.Store.GetEmailsForService(ctx, svc.ID, c.Limit)
	if err != nil {
		return err
	}

	renderEmails(os.Stdout, svc, records)
	return nil
}

type updateCommand struct {
	Status   string `long:"status" description:"New status" choice:"pending" choice:"in_progress" choice:"migrated" choice:"skipped"`
	Priority string `long:"priority" description:"New priority" choice:"high" choice:"medium" choice:"low"`
	Category string `long:"category" description:"New category"`
	Notes    string `long:"notes" description:"Replace notes"`
	Args     struct {
		Email string `positional-arg-name:"SENDER" required:"yes"`
	} `positional-args:"yes"`
}

func (c *updateCommand) Execute([]string) error {
	patch := c.patch()
	if patch == (model.ServicePatch{}) {
		return fmt.Errorf("nothing to update: pass --status, --priority, --category or --notes")
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	svc, err := a.Store.GetServiceByEmail(ctx, c.Args.Email)
	if err != nil {
		return err
	}
	updated, err := a.Store.UpdateService(ctx, svc.ID, patch)
	if err != nil {
		return err
	}

	renderServices(os.Stdout, []model.Service{*updated})
	return nil
}

func (c *updateCommand) patch() model.ServicePatch {
	var p model.ServicePatch
	if c.Status != "" {
		p.Status = &c.Status
	}
	if c.Priority != "" {
		p.Priority = &c.Priority
	}
	if c.Category != "" {
		p.Category = &c.Category
	}
	if c.Notes != "" {
		p.Notes = &c.Notes
	}
	return p
}

type recategorizeCommand struct {
	Args struct {
		Email string `positional-arg-name:"SENDER" description:"Only re-detect this service"`
	} `positional-args:"yes"`
}

func (c *recategorizeCommand) Execute([]string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	classifier := a.Classifier()

	if c.Args.Email != "" {
		svc, err := a.Store.GetServiceByEmail(ctx, c.Args.Email)
		if err != nil {
			return err
		}
		category, err := a.Store.AutoDetectCategory(ctx, svc.ID, classifier)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s -> %s\n", svc.EmailAddress, svc.Category, category)
		return nil
	}

	n, err := a.Store.RecategorizeOther(ctx, classifier)
	if err != nil {
		return err
	}
	fmt.Printf("Recategorized %d services\n", n)
	return nil
}

type historyCommand struct {
	Limit int `short:"n" long:"limit" default:"10" description:"Rows per section"`
}

func (c *historyCommand) Execute([]string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	runs, err := a.Store.GetScanRuns(ctx, c.Limit)
	if err != nil {
		return err
	}
	total, err := a.Store.TotalEmailsScanned(ctx)
	if err != nil {
		return err
	}
	changes, err := a.Store.GetMigrationHistory(ctx, c.Limit)
	if err != nil {
		return err
	}

	renderScanRuns(os.Stdout, runs, total)
	renderHistory(os.Stdout, changes)
	return nil
}
