package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jaswdr/faker"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RockaiDev/bariqe-dashboard/internal/auth"
	"github.com/RockaiDev/bariqe-dashboard/internal/catalog"
	"github.com/RockaiDev/bariqe-dashboard/internal/domain"
	"github.com/RockaiDev/bariqe-dashboard/internal/export"
	"github.com/RockaiDev/bariqe-dashboard/internal/ingestion"
	"github.com/RockaiDev/bariqe-dashboard/internal/query"
)

func (a *app) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations or create mongo indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, closeStore, err := a.openStore(cmd.Context(), true)
			if err != nil {
				return err
			}
			closeStore()
			a.logger.Info("storage is up to date", zap.String("backend", a.cfg.Backend))
			return nil
		},
	}
}

// entityArg resolves the entity slug given as first argument.
func entityArg(args []string) (domain.EntityDefinition, error) {
	def, ok := catalog.Default().Lookup(args[0])
	if !ok {
		return domain.EntityDefinition{}, fmt.Errorf("unknown entity %q", args[0])
	}
	return def, nil
}

func organizationFlag(raw string) (uuid.UUID, error) {
	id, err := auth.ParseOrganizationID(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("--org: %w", err)
	}
	return id, nil
}

func (a *app) importCommand() *cobra.Command {
	var org string
	cmd := &cobra.Command{
		Use:   "import <entity> <file>",
		Short: "Import a CSV or XLSX file into an entity collection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := entityArg(args)
			if err != nil {
				return err
			}
			orgID, err := organizationFlag(org)
			if err != nil {
				return err
			}

			file, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer file.Close()

			repo, closeStore, err := a.openStore(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closeStore()

			ctx := auth.ContextWithOrganizationID(cmd.Context(), orgID)
			result, err := ingestion.NewService(a.recordService(repo)).Import(ctx, ingestion.Request{
				OrganizationID: orgID,
				Entity:         def,
				FileName:       filepath.Base(args[1]),
				Data:           file,
			})
			if err != nil {
				return err
			}
			printImportResult(cmd, result)
			return nil
		},
	}
	cmd.Flags().StringVar(&org, "org", "", "organization id to import into")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

func printImportResult(cmd *cobra.Command, result domain.ImportResult) {
	summary := tablewriter.NewWriter(cmd.OutOrStdout())
	summary.SetHeader([]string{"created", "updated", "failed"})
	summary.Append([]string{
		strconv.Itoa(len(result.Success)),
		strconv.Itoa(len(result.Updated)),
		strconv.Itoa(len(result.Failed)),
	})
	summary.Render()

	if len(result.Failed) == 0 {
		return
	}
	failures := tablewriter.NewWriter(cmd.OutOrStdout())
	failures.SetHeader([]string{"row", "error"})
	failures.SetAutoWrapText(false)
	for _, row := range result.Failed {
		failures.Append([]string{strconv.Itoa(row.Row), row.Error})
	}
	failures.Render()
}

func (a *app) exportCommand() *cobra.Command {
	var (
		org     string
		format  string
		filters string
		sort    string
		out     string
	)
	cmd := &cobra.Command{
		Use:   "export <entity>",
		Short: "Export an entity collection to CSV or XLSX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := entityArg(args)
			if err != nil {
				return err
			}
			orgID, err := organizationFlag(org)
			if err != nil {
				return err
			}
			parsed, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			repo, closeStore, err := a.openStore(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closeStore()

			svc := export.NewService(a.recordService(repo))
			req := export.Request{
				OrganizationID: orgID,
				Entity:         def,
				Format:         parsed,
				Query:          query.Request{Filters: filters, Sort: sort},
			}
			if _, err := svc.Plan(req); err != nil {
				return err
			}

			if out == "" {
				out = svc.FileName(def, parsed)
			}
			file, err := os.Create(out)
			if err != nil {
				return err
			}
			defer file.Close()

			summary, err := svc.Export(cmd.Context(), req, file)
			if err != nil {
				return err
			}
			a.logger.Info("export written",
				zap.String("file", out),
				zap.Int("rows", summary.Rows),
				zap.Int64("bytes", summary.Bytes),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&org, "org", "", "organization id to export from")
	cmd.Flags().StringVar(&format, "format", string(export.FormatXLSX), "xlsx or csv")
	cmd.Flags().StringVar(&filters, "filters", "", "JSON filter tuples")
	cmd.Flags().StringVar(&sort, "sort", "", "JSON sort tuples")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, defaults to a timestamped name")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

func (a *app) seedCommand() *cobra.Command {
	var (
		org   string
		count int
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill an organization with generated customers and orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			orgID, err := organizationFlag(org)
			if err != nil {
				return err
			}
			repo, closeStore, err := a.openStore(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer closeStore()

			registry := catalog.Default()
			customers, _ := registry.Lookup(catalog.Customers)
			orders, _ := registry.Lookup(catalog.Orders)
			svc := a.recordService(repo)
			ctx := auth.ContextWithOrganizationID(cmd.Context(), orgID)
			fake := faker.New()
			statuses := []string{"pending", "processing", "shipped", "delivered", "cancelled"}

			for i := 0; i < count; i++ {
				person := fake.Person()
				name := person.Name()
				email := fake.Internet().Email()
				customer, err := svc.Create(ctx, customers, orgID, map[string]any{
					"customerName":    name,
					"customerEmail":   email,
					"customerPhone":   fake.Phone().Number(),
					"customerAddress": fake.Address().Address(),
					"customerStatus":  "active",
				})
				if err != nil {
					return err
				}

				quantity := fake.IntBetween(1, 20)
				_, err = svc.Create(ctx, orders, orgID, map[string]any{
					"orderNumber":   fmt.Sprintf("ORD-%06d", fake.IntBetween(1, 999999)),
					"customerName":  name,
					"customerEmail": email,
					"customerId":    customer.ID.String(),
					"products":      []string{fake.Lorem().Word(), fake.Lorem().Word()},
					"quantity":      quantity,
					"totalPrice":    float64(quantity) * float64(fake.IntBetween(5, 250)),
					"orderStatus":   statuses[fake.IntBetween(0, len(statuses)-1)],
					"orderDate":     time.Now().AddDate(0, 0, -fake.IntBetween(0, 365)),
				})
				if err != nil {
					return err
				}
			}
			a.logger.Info("seeded organization", zap.String("organizationId", orgID.String()), zap.Int("customers", count))
			return nil
		},
	}
	cmd.Flags().StringVar(&org, "org", "", "organization id to seed")
	cmd.Flags().IntVar(&count, "count", 25, "number of customers, each with one order")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}
