// Package seed bootstraps the reference data a fresh installation needs:
// the municipalities a case can point at and the approval levels activities
// are granted on.
package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/nordkom/caseflow/internal/activity/domain"
	appropriationdomain "github.com/nordkom/caseflow/internal/appropriation/domain"
	caseworkdomain "github.com/nordkom/caseflow/internal/casework/domain"
	paymentdomain "github.com/nordkom/caseflow/internal/paymentschedule/domain"
	"gorm.io/gorm"
)

var defaultMunicipalities = []string{
	"Ballerup Kommune",
	"Egedal Kommune",
	"Frederikssund Kommune",
	"Furesø Kommune",
	"Gladsaxe Kommune",
	"Herlev Kommune",
	"København Kommune",
}

var defaultApprovalLevels = []string{
	"egenkompetence",
	"fagspecialist",
	"teammøde",
	"teamleder",
	"afsnitsleder",
	"afdelingsleder",
	"direktør",
}

// AutoMigrate creates the schema from the models. Used for dialects the
// embedded SQL migrations do not cover.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	return db.AutoMigrate(
		&caseworkdomain.Municipality{},
		&caseworkdomain.SchoolDistrict{},
		&caseworkdomain.Team{},
		&caseworkdomain.Case{},
		&appropriationdomain.Section{},
		&appropriationdomain.ApprovalLevel{},
		&appropriationdomain.Appropriation{},
		&activitydomain.ServiceProvider{},
		&activitydomain.ActivityDetails{},
		&activitydomain.Activity{},
		&paymentdomain.PaymentSchedule{},
		&paymentdomain.Payment{},
	)
}

// EnsureDefaults idempotently seeds municipalities and approval levels.
func EnsureDefaults(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, name := range defaultMunicipalities {
			if err := ensureMunicipality(ctx, tx, node, name); err != nil {
				return err
			}
		}
		for _, name := range defaultApprovalLevels {
			if err := ensureApprovalLevel(ctx, tx, node, name); err != nil {
				return err
			}
		}
		return nil
	})
}

func ensureMunicipality(ctx context.Context, tx *gorm.DB, node *snowflake.Node, name string) error {
	var municipality caseworkdomain.Municipality
	err := tx.WithContext(ctx).Where("name = ?", name).First(&municipality).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	municipality = caseworkdomain.Municipality{
		ID:     node.Generate(),
		Name:   name,
		Active: true,
	}
	return tx.WithContext(ctx).Create(&municipality).Error
}

func ensureApprovalLevel(ctx context.Context, tx *gorm.DB, node *snowflake.Node, name string) error {
	var level appropriationdomain.ApprovalLevel
	err := tx.WithContext(ctx).Where("name = ?", name).First(&level).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	level = appropriationdomain.ApprovalLevel{
		ID:     node.Generate(),
		Name:   name,
		Active: true,
	}
	return tx.WithContext(ctx).Create(&level).Error
}
