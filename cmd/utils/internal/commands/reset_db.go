package commands

import (
	"context"
	"fmt"

	"github.com/appetiteclub/apt"
)

// ResetDB drops the printdesk database - USE WITH CAUTION.
func ResetDB(ctx context.Context, config *apt.Config, logger apt.Logger) error {
	logger.Infof("DANGER: This will drop the %s database!", databaseName)
	logger.Infof("This action cannot be undone!")

	client, err := connect(ctx, config)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	logger.Info("Connected to MongoDB")

	if err := client.Database(databaseName).Drop(ctx); err != nil {
		return fmt.Errorf("drop database %s: %w", databaseName, err)
	}
	logger.Info("Dropped database", "name", databaseName)

	return nil
}
