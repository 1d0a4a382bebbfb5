package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/MonishNivethIlango/doculan-service-sub001/internal/models"
	"github.com/MonishNivethIlango/doculan-service-sub001/internal/repository"
	"github.com/MonishNivethIlango/doculan-service-sub001/internal/service"
	"github.com/MonishNivethIlango/doculan-service-sub001/pkg/config"
	"github.com/MonishNivethIlango/doculan-service-sub001/pkg/database"
)

type seedFile struct {
	Defaults []models.RolePermissionDocument            `json:"defaults"`
	Orgs     map[string][]models.RolePermissionDocument `json:"orgs"`
}

func main() {
	var (
		rolesPath     string
		dryRun        bool
		timeout       time.Duration
		adminEmail    string
		adminPassword string
		adminOrg      string
	)
	flag.StringVar(&rolesPath, "roles", filepath.Join("scripts", "seed_roles", "roles.json"), "Path to JSON role definitions")
	flag.BoolVar(&dryRun, "dry-run", false, "Validate the file without writing")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Overall timeout")
	flag.StringVar(&adminEmail, "admin-email", "", "Bootstrap a superadmin account with this email")
	flag.StringVar(&adminPassword, "admin-password", "", "Password for the bootstrap account")
	flag.StringVar(&adminOrg, "admin-org", "", "Organisation of the bootstrap account")
	flag.Parse()

	seed, err := loadSeed(rolesPath)
	if err != nil {
		log.Fatalf("failed to load roles: %v", err)
	}
	if err := validateSeed(seed); err != nil {
		log.Fatalf("invalid roles: %v", err)
	}
	fmt.Printf("Validated %d default roles and %d organisations\n", len(seed.Defaults), len(seed.Orgs))
	if dryRun {
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	repo := repository.NewRoleRepository(db)
	for _, role := range seed.Defaults {
		if err := repo.UpsertDefaultRole(ctx, role); err != nil {
			log.Fatalf("seed default role %s: %v", role.RoleName, err)
		}
	}
	for org, roles := range seed.Orgs {
		if err := repo.SaveOrgRoles(ctx, org, roles); err != nil {
			log.Fatalf("seed org %s: %v", org, err)
		}
	}
	fmt.Println("Roles seeded. Cached role documents expire within ROLE_CACHE_TTL.")

	if adminEmail == "" {
		return
	}
	if err := bootstrapAdmin(ctx, repository.NewUserRepository(db), adminEmail, adminPassword, adminOrg); err != nil {
		log.Fatalf("bootstrap admin: %v", err)
	}
}

func bootstrapAdmin(ctx context.Context, users *repository.UserRepository, email, password, org string) error {
	if len(password) < 8 {
		return fmt.Errorf("admin password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	err = users.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     "Administrator",
		Roles:        pq.StringArray{models.RoleSuperAdmin, models.RoleAdmin},
		Org:          org,
		Active:       true,
	})
	if errors.Is(err, repository.ErrUserExists) {
		fmt.Printf("Account %s already exists, left unchanged\n", email)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("Bootstrap account %s created\n", email)
	return nil
}

func loadSeed(path string) (*seedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, err
	}
	if len(seed.Defaults) == 0 && len(seed.Orgs) == 0 {
		return nil, fmt.Errorf("no roles defined in %s", path)
	}
	return &seed, nil
}

func validateSeed(seed *seedFile) error {
	validate := validator.New()
	check := func(scope string, roles []models.RolePermissionDocument) error {
		seen := make(map[string]struct{}, len(roles))
		for _, role := range roles {
			if err := validate.Struct(role); err != nil {
				return fmt.Errorf("%s role %q: %w", scope, role.RoleName, err)
			}
			key := strings.ToLower(role.RoleName)
			if _, dup := seen[key]; dup {
				return fmt.Errorf("%s role %q defined twice", scope, role.RoleName)
			}
			seen[key] = struct{}{}
			for _, perm := range role.APIPermissions {
				if _, err := service.CompilePathTemplate(perm.URLPattern); err != nil {
					return fmt.Errorf("%s role %q pattern %q: %w", scope, role.RoleName, perm.URLPattern, err)
				}
			}
		}
		return nil
	}

	if err := check("default", seed.Defaults); err != nil {
		return err
	}
	for org, roles := range seed.Orgs {
		if strings.TrimSpace(org) == "" {
			return fmt.Errorf("organisation name must not be empty")
		}
		if err := check(org, roles); err != nil {
			return err
		}
	}
	return nil
}
