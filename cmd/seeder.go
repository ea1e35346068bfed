package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/frahmantamala/inspection-workflow/db/seed"
	"github.com/frahmantamala/inspection-workflow/internal/auth"
	"github.com/frahmantamala/inspection-workflow/internal/core/database"
	locationDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/location"
	userDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/user"
	"github.com/frahmantamala/inspection-workflow/internal/inspection"
	inspectionPostgres "github.com/frahmantamala/inspection-workflow/internal/inspection/postgres"
	"github.com/frahmantamala/inspection-workflow/pkg/logger"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

var (
	clearData    bool
	fixturesFile string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed users and locations for development. Existing usernames and location names are left untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, lg, err := setup()
		if err != nil {
			return err
		}

		fx, err := readFixtures(fixturesFile)
		if err != nil {
			return err
		}

		db, err := initDB(cfg)
		if err != nil {
			return fmt.Errorf("failed to init db: %w", err)
		}
		defer database.Close(db)

		ctx := context.Background()
		if clearData {
			cleared, err := clearInspections(ctx, db)
			if err != nil {
				return err
			}
			lg.Info("cleared inspection data",
				"inspections", cleared.Inspections,
				"messages", cleared.Messages,
				"reminders", cleared.Reminders)
		}

		result, err := seedFixtures(ctx, db, fx, cfg.Security.BCryptCost)
		if err != nil {
			return err
		}
		lg.Info("seed complete",
			"users_created", result.Users,
			"locations_created", result.Locations)
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all inspections with their messages and reminders",
	Long:  `Delete every inspection together with the reminders and messages about it. Users and locations are kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, lg, err := setup()
		if err != nil {
			return err
		}
		db, err := initDB(cfg)
		if err != nil {
			return fmt.Errorf("failed to init db: %w", err)
		}
		defer database.Close(db)

		cleared, err := clearInspections(context.Background(), db)
		if err != nil {
			return err
		}
		lg.Info("cleared inspection data",
			"inspections", cleared.Inspections,
			"messages", cleared.Messages,
			"reminders", cleared.Reminders)
		return nil
	},
}

type Fixtures struct {
	Users     []UserFixture     `yaml:"users"`
	Locations []LocationFixture `yaml:"locations"`
}

type UserFixture struct {
	Username        string  `yaml:"username"`
	StaffID         string  `yaml:"staff_id"`
	Email           string  `yaml:"email"`
	FullName        string  `yaml:"full_name"`
	Role            string  `yaml:"role"`
	Password        string  `yaml:"password"`
	Phone           *string `yaml:"phone"`
	YearsExperience *int    `yaml:"years_experience"`
}

type LocationFixture struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type SeedResult struct {
	Users     int
	Locations int
}

// readFixtures reads path, or the embedded development fixtures when path is empty.
func readFixtures(path string) (Fixtures, error) {
	raw := seed.Fixtures
	if path != "" {
		var err error
		if raw, err = os.ReadFile(path); err != nil {
			return Fixtures{}, fmt.Errorf("read fixtures: %w", err)
		}
	}
	return parseFixtures(raw)
}

func parseFixtures(raw []byte) (Fixtures, error) {
	var fx Fixtures
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return Fixtures{}, fmt.Errorf("parse fixtures: %w", err)
	}
	for i, u := range fx.Users {
		if u.Username == "" || u.StaffID == "" || u.Email == "" || u.Password == "" {
			return Fixtures{}, fmt.Errorf("user fixture %d: username, staff_id, email and password are required", i)
		}
		if !auth.ValidRole(u.Role) {
			return Fixtures{}, fmt.Errorf("user fixture %q: invalid role %q", u.Username, u.Role)
		}
	}
	for i, l := range fx.Locations {
		if strings.TrimSpace(l.Name) == "" {
			return Fixtures{}, fmt.Errorf("location fixture %d: name is required", i)
		}
	}
	return fx, nil
}

func seedFixtures(ctx context.Context, db *gorm.DB, fx Fixtures, cost int) (SeedResult, error) {
	var result SeedResult
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range fx.Users {
			var count int64
			if err := tx.Model(&userDatamodel.User{}).Where("username = ?", u.Username).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}

			hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), cost)
			if err != nil {
				return fmt.Errorf("hash password for %s: %w", u.Username, err)
			}
			row := &userDatamodel.User{
				Username:        u.Username,
				StaffID:         u.StaffID,
				Email:           strings.ToLower(u.Email),
				FullName:        u.FullName,
				PasswordHash:    string(hash),
				Role:            u.Role,
				Phone:           u.Phone,
				YearsExperience: u.YearsExperience,
				IsActive:        true,
			}
			if err := tx.Create(row).Error; err != nil {
				return fmt.Errorf("insert user %s: %w", u.Username, err)
			}
			result.Users++
		}

		for _, l := range fx.Locations {
			name := strings.TrimSpace(l.Name)
			var count int64
			if err := tx.Model(&locationDatamodel.Location{}).Where("name = ?", name).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			if err := tx.Create(&locationDatamodel.Location{Name: name, Description: l.Description, IsActive: true}).Error; err != nil {
				return fmt.Errorf("insert location %s: %w", name, err)
			}
			result.Locations++
		}
		return nil
	})
	return result, err
}

func clearInspections(ctx context.Context, db *gorm.DB) (inspection.ClearResult, error) {
	service := inspection.NewService(inspectionPostgres.NewInspectionRepository(db), nil, nil, nil, logger.From(ctx))
	return service.Clear(ctx)
}

func init() {
	seedCmd.Flags().BoolVar(&clearData, "clear", false, "Clear inspections, messages and reminders before seeding")
	seedCmd.Flags().StringVar(&fixturesFile, "file", "", "YAML fixtures file (defaults to the built-in development fixtures)")
}
