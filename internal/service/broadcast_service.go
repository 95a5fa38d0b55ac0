package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vaidarjogo/go-confirmation-service/internal/domain"
	"github.com/vaidarjogo/go-confirmation-service/internal/metrics"
	"github.com/vaidarjogo/go-confirmation-service/internal/shared/logger"
	"github.com/vaidarjogo/go-confirmation-service/internal/whatsapp"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const broadcastQueueCapacity = 1024

type broadcastJob struct {
	broadcastID string
	phone       string
	playerName  string
	message     string
}

// BroadcastService fans an ad-hoc message out to every active player of a
// game through a small worker pool. Broadcasts are fire-and-forget operator
// messages; they do not touch the dispatch ledger.
type BroadcastService struct {
	sender   Sender
	players  PlayerStore
	games    GameStore
	workers  int
	jobs     chan broadcastJob
	stopChan chan struct{}
	log      *logger.Logger
}

// NewBroadcastService creates a new broadcast service
func NewBroadcastService(sender Sender, players PlayerStore, games GameStore, workers int, log *logger.Logger) *BroadcastService {
	if workers <= 0 {
		workers = 5
	}

	return &BroadcastService{
		sender:   sender,
		players:  players,
		games:    games,
		workers:  workers,
		jobs:     make(chan broadcastJob, broadcastQueueCapacity),
		stopChan: make(chan struct{}),
		log:      log,
	}
}

// Start starts the worker pool
func (s *BroadcastService) Start() {
	s.log.Info("Starting broadcast service", "workers", s.workers)

	for i := 0; i < s.workers; i++ {
		go s.worker(i)
	}
}

// Stop stops the worker pool
func (s *BroadcastService) Stop() {
	close(s.stopChan)
}

func (s *BroadcastService) worker(id int) {
	for {
		select {
		case <-s.stopChan:
			s.log.Info("Stopping broadcast worker", "worker_id", id)
			return
		case job := <-s.jobs:
			metrics.BroadcastQueueSize.Set(float64(len(s.jobs)))

			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			if _, err := s.sender.Send(ctx, job.phone, job.message); err != nil {
				s.log.Error("Failed to send broadcast message",
					"error", err, "broadcast_id", job.broadcastID, "player", job.playerName, "worker_id", id)
			}
			cancel()
		}
	}
}

// SendBroadcast queues a message for every active player of the game that has
// a resolvable phone. Returns the broadcast id and the number of players queued.
func (s *BroadcastService) SendBroadcast(ctx context.Context, gameID primitive.ObjectID, message string) (string, int, error) {
	if _, err := s.games.FindByID(ctx, gameID); err != nil {
		return "", 0, err
	}

	players, err := s.players.FindForGame(ctx, gameID, domain.PlayerTypeAll)
	if err != nil {
		return "", 0, err
	}

	broadcastID := uuid.New().String()
	queued := 0

	for _, player := range players {
		phone := player.ContactPhone()
		if phone == "" {
			s.log.Warn("Skipping broadcast for player without phone", "player_id", player.ID.Hex())
			continue
		}

		s.jobs <- broadcastJob{
			broadcastID: broadcastID,
			phone:       whatsapp.NormalizePhone(phone),
			playerName:  player.Name,
			message:     message,
		}
		queued++
	}

	metrics.BroadcastQueueSize.Set(float64(len(s.jobs)))
	s.log.Info("Broadcast queued", "broadcast_id", broadcastID, "game_id", gameID.Hex(), "players", queued)

	return broadcastID, queued, nil
}

// QueueSize returns the number of queued broadcast jobs
func (s *BroadcastService) QueueSize() int {
	return len(s.jobs)
}
