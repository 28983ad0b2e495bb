package permissions

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kleineLoesungen/userbase/internal/database"
	"github.com/kleineLoesungen/userbase/internal/groups"
)

// Sync reconciles the capability registry with the database at startup: it
// creates the administrator group when missing and upserts its default
// grants. Sync is idempotent and safe to run on every boot.
func Sync(ctx context.Context, conn database.Connector, groupRepo groups.Repository, permRepo Repository) error {
	for _, reg := range Registry {
		if err := reg.Key.Validate(); err != nil {
			return fmt.Errorf("invalid registry entry %q: %w", reg.Key, err)
		}
	}

	err := conn.WithTx(ctx, func(tx database.Querier) error {
		adminID, found, err := groupRepo.FindByNameTx(ctx, tx, groups.AdminGroupName)
		if err != nil {
			return err
		}
		if !found {
			adminID, err = groupRepo.CreateTx(ctx, tx, groups.AdminGroupName,
				"Administrators with full access to user and group management", false)
			if err != nil {
				return err
			}
			slog.Info("created administrator group", "group_id", adminID)
		}

		for _, reg := range DefaultAdminCapabilities() {
			if err := permRepo.AddTx(ctx, tx, adminID, reg.Key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("syncing capability registry: %w", err)
	}

	slog.Info("capability registry synced", "registered", len(Registry))
	return nil
}
