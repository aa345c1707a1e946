// Command seed creates demo users and signs them up for an event.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/manav03panchal/nodiverse/internal/app"
	"github.com/manav03panchal/nodiverse/internal/store"
)

var names = []string{
	"Alice", "Bob", "Charlie", "David", "Eve", "Frank", "Grace", "Hannah", "Ian", "Jack",
	"Kate", "Leo", "Mia", "Noah", "Olivia", "Paul", "Quinn", "Riley", "Sophia", "Tom",
	"Uma", "Victor", "Wendy", "Xander", "Yasmin", "Zane", "Abby", "Brian", "Cindy", "Derek",
	"Ella", "Finn", "Gina", "Henry", "Isla", "James", "Karen", "Liam", "Mila", "Nathan",
	"Oscar", "Penny", "Quincy", "Ron", "Sasha", "Theo", "Ursula", "Vincent", "Willow", "Xena",
}

// attempts per user before a name collision is given up on
const maxAttempts = 5

type seeder interface {
	CreateUser(ctx context.Context, nu store.NewUser) (store.User, error)
	GetEvent(ctx context.Context, id string) (store.Event, error)
	AddParticipant(ctx context.Context, eventID, userID, role string) (store.EventParticipant, error)
}

type plan struct {
	api          string
	direct       bool
	eventID      string
	participants int
	organizers   int
}

func main() {
	_ = godotenv.Load()

	var p plan
	flag.StringVar(&p.eventID, "event", "", "event id to add users to (required)")
	flag.StringVar(&p.api, "api", "http://localhost:8000", "base URL of a running server")
	flag.BoolVar(&p.direct, "direct", false, "write to Postgres instead of the API; live rooms are not notified")
	flag.IntVar(&p.participants, "participants", 2, "number of participants to create")
	flag.IntVar(&p.organizers, "organizers", 5, "number of organizers to create")
	flag.Parse()
	if p.eventID == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	logger := app.NewLogger(cfg.Env)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var st seeder = newAPIClient(p.api)
	if p.direct {
		pg, err := store.NewPostgres(ctx, cfg, logger)
		if err != nil {
			log.Fatal(err)
		}
		defer pg.Close()
		st = pg
	}

	n, err := seed(ctx, st, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), logger, p)
	if err != nil {
		logger.Error("seed.failed", "created", n, "err", err)
		os.Exit(1)
	}
	logger.Info("seed.done", "event", p.eventID, "created", n)
}

// seed creates the planned users and adds them to the event. It returns how
// many were added before the first hard failure.
func seed(ctx context.Context, st seeder, rng *rand.Rand, log *slog.Logger, p plan) (int, error) {
	if _, err := st.GetEvent(ctx, p.eventID); err != nil {
		return 0, fmt.Errorf("event %q: %w", p.eventID, err)
	}

	added := 0
	for _, batch := range []struct {
		role  string
		count int
	}{{store.RoleParticipant, p.participants}, {store.RoleOrganizer, p.organizers}} {
		for range batch.count {
			u, err := createUser(ctx, st, rng, batch.role)
			if err != nil {
				return added, err
			}
			if _, err := st.AddParticipant(ctx, p.eventID, u.ID, batch.role); err != nil {
				return added, fmt.Errorf("add %s: %w", u.Name, err)
			}
			added++
			log.Info("seed.user", "name", u.Name, "id", u.ID, "role", batch.role)
		}
	}
	return added, nil
}

func createUser(ctx context.Context, st seeder, rng *rand.Rand, role string) (store.User, error) {
	var err error
	for range maxAttempts {
		name := fmt.Sprintf("%s%d", names[rng.IntN(len(names))], 1+rng.IntN(99))
		handle := strings.ToLower(name)
		var u store.User
		u, err = st.CreateUser(ctx, store.NewUser{
			Name:  name,
			Email: handle + "@example.com",
			Role:  role,
			Profile: map[string]any{
				"github": "https://github.com/" + handle,
				"skills": []string{"Go", "Postgres"},
			},
		})
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return store.User{}, fmt.Errorf("create %s: %w", name, err)
		}
	}
	return store.User{}, fmt.Errorf("create user: %w", err)
}
