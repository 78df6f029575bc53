package main

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/mmdatafocus/catalog_backend/config"
	"github.com/mmdatafocus/catalog_backend/importer"
	"github.com/mmdatafocus/catalog_backend/utils"
	"github.com/spf13/cobra"
)

type commandContext struct {
	businessId *string

	serviceOnce sync.Once
	service     *importer.Service
	serviceErr  error
}

func newCommandContext(businessId *string) *commandContext {
	return &commandContext{businessId: businessId}
}

// ensureService connects once; a bad DSN fails the command instead of retrying.
func (c *commandContext) ensureService() (*importer.Service, error) {
	c.serviceOnce.Do(func() {
		db, err := config.ConnectDatabase()
		if err != nil {
			c.serviceErr = err
			return
		}
		c.service = importer.NewService(db)
	})
	return c.service, c.serviceErr
}

// requestContext scopes ctx to the business the way the HTTP middleware does.
func (c *commandContext) requestContext(ctx context.Context) (context.Context, string, error) {
	businessId := ""
	if c.businessId != nil {
		businessId = strings.TrimSpace(*c.businessId)
	}
	if businessId == "" {
		return nil, "", errors.New("--business-id is required")
	}
	return utils.SetBusinessIdInContext(ctx, businessId), businessId, nil
}

func newRootCommand() *cobra.Command {
	var businessId string
	ctx := newCommandContext(&businessId)

	rootCmd := &cobra.Command{
		Use:           "catalog-import",
		Short:         "Validate, commit and inspect catalog imports",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVar(&businessId, "business-id", "", "Business the import belongs to")

	rootCmd.AddCommand(newValidateCommand(ctx))
	rootCmd.AddCommand(newCommitCommand(ctx))
	rootCmd.AddCommand(newRunsCommand(ctx))
	return rootCmd
}
