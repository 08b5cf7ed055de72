package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"carequeue/api/routes"
	"carequeue/internal/capacity"
	"carequeue/internal/domain"
	"carequeue/internal/priority"
	"carequeue/internal/shared/config"
	"carequeue/internal/shared/database"
	"carequeue/internal/shared/middleware"
	"carequeue/internal/waitlist"
	"carequeue/pkg/logger"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type Seeder struct {
	cfg      *config.Config
	db       *database.DB
	services *routes.Services
}

func main() {
	families := flag.Int("families", 12, "waitlist entries to create per daycare")
	flag.Parse()

	_ = godotenv.Load()
	fmt.Println("Starting carequeue database seeder...")

	cfg := config.Load()
	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{
		cfg:      cfg,
		db:       db,
		services: routes.BuildServices(cfg, db, nil, logger.GetDefault()),
	}

	fmt.Println("\nCleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}

	fmt.Println("\nSeeding database...")
	if err := seeder.SeedAll(context.Background(), *families); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}

	fmt.Println("\nSeeding completed. Database is ready for testing.")
}

// CleanDatabase truncates every table the service owns
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"waitlist_audit_logs",
		"enrollments",
		"capacity_reservations",
		"waitlist_offers",
		"waitlist_campaigns",
		"waitlist_priority_rules",
		"waitlist_entries",
		"daycare_capacities",
	}

	tx := s.db.PostgreSQL.Begin()
	for _, table := range tables {
		fmt.Printf("  Truncating table: %s\n", table)
		if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}
	return tx.Commit().Error
}

// SeedAll creates two daycares with capacity, a standard rule set and a queue of families
func (s *Seeder) SeedAll(ctx context.Context, families int) error {
	provider := uuid.New()
	daycares := map[string]int{"Little Oaks": 12, "Sunny Steps": 8}

	for name, total := range daycares {
		daycareID := uuid.New()
		fmt.Printf("  Daycare %s (%s), capacity %d\n", name, daycareID, total)

		if _, err := s.services.Capacity.SetCapacity(ctx, capacity.SetCapacityRequest{
			DaycareID: daycareID, TotalCapacity: total,
		}, provider); err != nil {
			return fmt.Errorf("failed to set capacity for %s: %w", name, err)
		}
		if err := s.seedRules(ctx, daycareID, provider); err != nil {
			return err
		}
		if err := s.seedFamilies(ctx, daycareID, families); err != nil {
			return err
		}
		if _, err := s.services.Ranking.RecalculatePositions(ctx, domain.NewScope(daycareID, nil), &provider); err != nil {
			return fmt.Errorf("failed to rank %s: %w", name, err)
		}
	}

	token, err := s.token(provider, middleware.RoleProvider)
	if err != nil {
		return err
	}
	fmt.Printf("\n  Provider %s access token:\n  %s\n", provider, token)

	if s.db.Redis != nil {
		if err := s.db.Redis.FlushDB(ctx).Err(); err != nil {
			log.Printf("Warning: Failed to clear Redis cache: %v", err)
		}
	}
	return nil
}

func (s *Seeder) seedRules(ctx context.Context, daycareID, provider uuid.UUID) error {
	longWait, _ := json.Marshal(domain.RuleConditions{MinDays: intPtr(180), MaxDays: intPtr(3650)})
	rules := []priority.CreateRuleRequest{
		{Name: "Sibling enrolled", RuleType: domain.RuleTypeSiblingEnrolled, Points: 50},
		{Name: "Staff child", RuleType: domain.RuleTypeStaffChild, Points: 40, SortOrder: 1},
		{Name: "Special needs", RuleType: domain.RuleTypeSpecialNeeds, Points: 30, SortOrder: 2},
		{Name: "In service area", RuleType: domain.RuleTypeInServiceArea, Points: 20, SortOrder: 3},
		{Name: "Subsidy approved", RuleType: domain.RuleTypeSubsidyApproved, Points: 15, SortOrder: 4},
		{Name: "Waiting six months", RuleType: domain.RuleTypeTimeOnList, Points: 10, SortOrder: 5, Conditions: longWait},
	}
	for _, req := range rules {
		req.DaycareID = daycareID
		if _, err := s.services.Priority.CreateRule(ctx, req, provider); err != nil {
			return fmt.Errorf("failed to create rule %q: %w", req.Name, err)
		}
	}
	return nil
}

func (s *Seeder) seedFamilies(ctx context.Context, daycareID uuid.UUID, n int) error {
	for i := 0; i < n; i++ {
		parent := uuid.New()
		start := time.Now().AddDate(0, 3+i%6, 0)
		req := waitlist.JoinWaitlistRequest{
			DaycareID:          daycareID,
			ChildID:            uuid.New(),
			PreferredStartDate: &start,
			HasSiblingEnrolled: i%5 == 0,
			IsStaffChild:       i%7 == 0,
			InServiceArea:      i%2 == 0,
			HasSubsidyApproval: i%4 == 0,
			HasSpecialNeeds:    i%9 == 0,
		}
		if _, err := s.services.Waitlist.JoinWaitlist(ctx, parent, req); err != nil {
			return fmt.Errorf("failed to add family %d: %w", i, err)
		}
	}
	fmt.Printf("    Added %d families\n", n)
	return nil
}

// token signs a development access token the API accepts.
func (s *Seeder) token(userID uuid.UUID, role string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"role":    role,
		"type":    "access",
		"iss":     s.cfg.JWT.Issuer,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWT.Secret))
}

func intPtr(v int) *int { return &v }
