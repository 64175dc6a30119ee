package region

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/substrate/internal/events"
	"github.com/aristath/substrate/internal/modules/terminal"
	"github.com/aristath/substrate/internal/quantum"
)

// Config holds the per-region engine parameters.
type Config struct {
	Tolerance        float64 // gate validation tolerance
	SimDT            float64 // integration step per evolution tick
	AuditTolerance   float64 // drift audit tolerance, looser than Tolerance
	TerminalPoolSize int
}

// Service owns every region in the process. Region creation and lookup are
// guarded by the service mutex; per-region state is guarded by the region's
// own lock.
type Service struct {
	mu      sync.RWMutex
	regions map[string]*Region

	cfg       Config
	recorder  terminal.Recorder
	snapshots *SnapshotRepository
	events    *events.Manager
	newRNG    func() *rand.Rand
	log       zerolog.Logger
}

// NewService creates the region service. recorder and snapshots may be nil
// to disable persistence.
func NewService(cfg Config, recorder terminal.Recorder, snapshots *SnapshotRepository, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		regions:   make(map[string]*Region),
		cfg:       cfg,
		recorder:  recorder,
		snapshots: snapshots,
		events:    eventManager,
		newRNG: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
		log: log.With().Str("service", "region").Logger(),
	}
}

// SetRNGFactory overrides the per-region random source, used by tests to get
// deterministic measurement outcomes.
func (s *Service) SetRNGFactory(factory func() *rand.Rand) {
	s.newRNG = factory
}

// Create builds a new empty region and returns its summary.
func (s *Service) Create(name string) Info {
	id := uuid.NewString()
	rng := s.newRNG()

	computer := quantum.NewComputer(rng, s.cfg.Tolerance, s.log)
	r := &Region{
		ID:        id,
		Name:      name,
		CreatedAt: time.Now(),
		Computer:  computer,
		Channels:  quantum.NewChannelSet(computer, s.log),
	}
	r.Terminals = terminal.NewPool(id, s.cfg.TerminalPoolSize, computer, s.recorder, s.events, rng, s.log)

	s.mu.Lock()
	s.regions[id] = r
	s.mu.Unlock()

	s.log.Info().Str("region", id).Str("name", name).Msg("region created")
	if s.events != nil {
		s.events.Emit(events.RegionCreated, "region", id, map[string]interface{}{"name": name})
	}
	return s.info(r)
}

// Get resolves a region by ID.
func (s *Service) Get(id string) (*Region, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.regions[id]
	if !ok {
		return nil, fmt.Errorf("region %s: %w", id, quantum.ErrNotFound)
	}
	return r, nil
}

// Delete removes a region and its stored snapshot.
func (s *Service) Delete(id string) error {
	s.mu.Lock()
	_, ok := s.regions[id]
	if ok {
		delete(s.regions, id)
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("region %s: %w", id, quantum.ErrNotFound)
	}
	if s.snapshots != nil {
		if err := s.snapshots.Delete(id); err != nil {
			s.log.Error().Err(err).Str("region", id).Msg("failed to delete snapshot")
		}
	}
	s.log.Info().Str("region", id).Msg("region deleted")
	return nil
}

// List returns summaries of every region, ordered by creation time.
func (s *Service) List() []Info {
	s.mu.RLock()
	regions := make([]*Region, 0, len(s.regions))
	for _, r := range s.regions {
		regions = append(regions, r)
	}
	s.mu.RUnlock()

	sort.Slice(regions, func(i, j int) bool {
		return regions[i].CreatedAt.Before(regions[j].CreatedAt)
	})

	infos := make([]Info, len(regions))
	for i, r := range regions {
		infos[i] = s.info(r)
	}
	return infos
}

// Describe returns one region's summary.
func (s *Service) Describe(id string) (Info, error) {
	r, err := s.Get(id)
	if err != nil {
		return Info{}, err
	}
	return s.info(r), nil
}

func (s *Service) info(r *Region) Info {
	r.Lock()
	defer r.Unlock()
	return Info{
		ID:         r.ID,
		Name:       r.Name,
		CreatedAt:  r.CreatedAt,
		Registers:  len(r.Computer.Registers()),
		Components: len(r.Computer.Components()),
		Terminals:  len(r.Terminals.Terminals()),
		Paused:     r.Channels.Paused(),
		Elapsed:    r.Channels.Elapsed(),
	}
}

// Tick advances continuous evolution in every region by the configured step.
// Paused regions skip integration but still accept discrete operations.
func (s *Service) Tick() {
	s.mu.RLock()
	regions := make([]*Region, 0, len(s.regions))
	for _, r := range s.regions {
		regions = append(regions, r)
	}
	s.mu.RUnlock()

	for _, r := range regions {
		r.Lock()
		r.Channels.Tick(s.cfg.SimDT)
		r.Unlock()
	}
}

// Pause freezes continuous evolution in one region.
func (s *Service) Pause(id string) error {
	r, err := s.Get(id)
	if err != nil {
		return err
	}
	r.Lock()
	r.Channels.Pause()
	r.Unlock()
	if s.events != nil {
		s.events.Emit(events.EvolutionPaused, "region", id, nil)
	}
	return nil
}

// Resume restarts continuous evolution in one region.
func (s *Service) Resume(id string) error {
	r, err := s.Get(id)
	if err != nil {
		return err
	}
	r.Lock()
	r.Channels.Resume()
	r.Unlock()
	if s.events != nil {
		s.events.Emit(events.EvolutionResumed, "region", id, nil)
	}
	return nil
}

// SaveSnapshot persists one region's engine state.
func (s *Service) SaveSnapshot(id string) error {
	if s.snapshots == nil {
		return nil
	}
	r, err := s.Get(id)
	if err != nil {
		return err
	}
	r.Lock()
	snap := r.Computer.Export()
	r.Unlock()

	if err := s.snapshots.Save(id, snap); err != nil {
		return err
	}
	if s.events != nil {
		s.events.Emit(events.SnapshotWritten, "region", id, map[string]interface{}{
			"components": len(snap.Components),
		})
	}
	return nil
}

// SaveAll snapshots every region, logging failures instead of aborting.
func (s *Service) SaveAll() {
	for _, info := range s.List() {
		if err := s.SaveSnapshot(info.ID); err != nil {
			s.log.Error().Err(err).Str("region", info.ID).Msg("snapshot failed")
		}
	}
}

// RestoreSnapshot replaces one region's engine state with the stored
// snapshot.
func (s *Service) RestoreSnapshot(id string) error {
	if s.snapshots == nil {
		return fmt.Errorf("snapshot store disabled: %w", quantum.ErrInvalidState)
	}
	r, err := s.Get(id)
	if err != nil {
		return err
	}
	snap, err := s.snapshots.Load(id)
	if err != nil {
		return err
	}

	r.Lock()
	err = r.Computer.Import(snap)
	r.Unlock()
	if err != nil {
		return err
	}
	if s.events != nil {
		s.events.Emit(events.SnapshotRestored, "region", id, map[string]interface{}{
			"components": len(snap.Components),
		})
	}
	return nil
}

// AuditAll checks and repairs numeric drift in every region, returning
// reports keyed by region ID. Only regions with violations appear.
func (s *Service) AuditAll() map[string][]quantum.DriftReport {
	out := make(map[string][]quantum.DriftReport)
	for _, info := range s.List() {
		r, err := s.Get(info.ID)
		if err != nil {
			continue
		}
		r.Lock()
		reports := r.Computer.Audit(s.cfg.AuditTolerance)
		r.Unlock()
		if len(reports) == 0 {
			continue
		}
		out[r.ID] = reports
		if s.events != nil {
			for _, rep := range reports {
				s.events.Emit(events.NumericDrift, "region", r.ID, map[string]interface{}{
					"component":      rep.ComponentID,
					"hermitian_dev":  rep.HermitianDev,
					"trace_dev":      rep.TraceDev,
					"min_eigenvalue": rep.MinEigenvalue,
				})
			}
		}
	}
	return out
}
