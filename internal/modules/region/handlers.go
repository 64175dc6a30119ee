package region

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/substrate/internal/events"
	"github.com/aristath/substrate/internal/quantum"
)

// Handler handles region HTTP requests: region lifecycle, quantum
// operations, noise channels and terminal bindings.
type Handler struct {
	regions *Service
	ledger  *LedgerRepository
	events  *events.Manager
	log     zerolog.Logger
}

// NewHandler creates a new region handler. ledger and eventManager may be
// nil.
func NewHandler(regions *Service, ledger *LedgerRepository, eventManager *events.Manager, log zerolog.Logger) *Handler {
	return &Handler{
		regions: regions,
		ledger:  ledger,
		events:  eventManager,
		log:     log.With().Str("handler", "region").Logger(),
	}
}

// RegisterRoutes mounts all region routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/regions", func(r chi.Router) {
		r.Post("/", h.HandleCreateRegion)
		r.Get("/", h.HandleListRegions)

		r.Route("/{regionID}", func(r chi.Router) {
			r.Get("/", h.HandleGetRegion)
			r.Delete("/", h.HandleDeleteRegion)
			r.Post("/pause", h.HandlePause)
			r.Post("/resume", h.HandleResume)
			r.Post("/snapshot", h.HandleSnapshot)
			r.Post("/restore", h.HandleRestore)

			r.Get("/registers", h.HandleListRegisters)
			r.Post("/registers", h.HandleCreateRegister)
			r.Get("/registers/{register}", h.HandleGetRegister)

			r.Get("/components", h.HandleListComponents)
			r.Post("/gates", h.HandleApplyGate)
			r.Post("/entangle", h.HandleEntangle)
			r.Post("/disentangle", h.HandleDisentangle)
			r.Post("/measure", h.HandleMeasure)
			r.Post("/measure-component", h.HandleMeasureComponent)

			r.Get("/channels", h.HandleListChannels)
			r.Post("/channels", h.HandleInstallChannel)
			r.Delete("/channels/{name}", h.HandleRemoveChannel)
			r.Post("/drivers", h.HandleSetDriver)
			r.Delete("/drivers/{register}", h.HandleClearDriver)
			r.Post("/apply", h.HandleApplyOnce)
			r.Post("/transfer", h.HandleTransfer)
			r.Post("/reset", h.HandleReset)

			r.Get("/terminals", h.HandleListTerminals)
			r.Post("/terminals/explore", h.HandleExplore)
			r.Post("/terminals/{terminal}/measure", h.HandleMeasureTerminal)
			r.Post("/terminals/{terminal}/pop", h.HandlePopTerminal)
			r.Post("/terminals/harvest", h.HandleHarvestGlobal)

			r.Get("/ledger", h.HandleLedger)
			r.Get("/ledger/total", h.HandleLedgerTotal)
		})
	})
}

// region resolves the region from the URL, writing the error response on
// failure.
func (h *Handler) region(w http.ResponseWriter, r *http.Request) (*Region, bool) {
	id := chi.URLParam(r, "regionID")
	reg, err := h.regions.Get(id)
	if err != nil {
		h.writeEngineError(w, err)
		return nil, false
	}
	return reg, true
}

// HandleCreateRegion creates a new region
// POST /regions
func (h *Handler) HandleCreateRegion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	info := h.regions.Create(req.Name)
	h.writeJSON(w, http.StatusCreated, info)
}

// HandleListRegions returns all regions
// GET /regions
func (h *Handler) HandleListRegions(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"regions": h.regions.List()})
}

// HandleGetRegion returns one region summary
// GET /regions/{regionID}
func (h *Handler) HandleGetRegion(w http.ResponseWriter, r *http.Request) {
	info, err := h.regions.Describe(chi.URLParam(r, "regionID"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, info)
}

// HandleDeleteRegion removes a region
// DELETE /regions/{regionID}
func (h *Handler) HandleDeleteRegion(w http.ResponseWriter, r *http.Request) {
	if err := h.regions.Delete(chi.URLParam(r, "regionID")); err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// HandlePause freezes continuous evolution
// POST /regions/{regionID}/pause
func (h *Handler) HandlePause(w http.ResponseWriter, r *http.Request) {
	if err := h.regions.Pause(chi.URLParam(r, "regionID")); err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

// HandleResume restarts continuous evolution
// POST /regions/{regionID}/resume
func (h *Handler) HandleResume(w http.ResponseWriter, r *http.Request) {
	if err := h.regions.Resume(chi.URLParam(r, "regionID")); err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "running"})
}

// HandleSnapshot persists the region state
// POST /regions/{regionID}/snapshot
func (h *Handler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := h.regions.SaveSnapshot(chi.URLParam(r, "regionID")); err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// HandleRestore replaces the region state with the stored snapshot
// POST /regions/{regionID}/restore
func (h *Handler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	if err := h.regions.RestoreSnapshot(chi.URLParam(r, "regionID")); err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "restored"})
}

// HandleListRegisters returns every registered label in index order
// GET /regions/{regionID}/registers
func (h *Handler) HandleListRegisters(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.region(w, r)
	if !ok {
		return
	}
	reg.Lock()
	labels := reg.Computer.Registers()
	reg.Unlock()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"registers": labels})
}

// HandleCreateRegister registers a labeled qubit
// POST /regions/{regionID}/registers
func (h *Handler) HandleCreateRegister(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.region(w, r)
	if !ok {
		return
	}
	var req quantum.Pair
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Ground == "" || req.Excited == "" {
		h.writeError(w, http.StatusBadRequest, "Both ground and excited labels are required")
		return
	}

	reg.Lock()
	index, created := reg.Computer.Register(req)
	reg.Unlock()

	if created {
		h.emit(events.QubitRegistered, reg.ID, map[string]interface{}{
			"register": index,
			"label":    req.Key(),
		})
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.writeJSON(w, status, map[string]interface{}{"register": index, "created": created})
}

// HandleGetRegister returns one register's marginal state
// GET /regions/{regionID}/registers/{register}
func (h *Handler) HandleGetRegister(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.region(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "register"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Register must be an integer")
		return
	}

	reg.Lock()
	label, lerr := reg.Computer.LabelFor(index)
	p0, p1, perr := reg.Computer.Probability(index)
	purity, _ := reg.Computer.Purity(index)
	members, _ := reg.Computer.ComponentMembers(index)
	reg.Unlock()

	if lerr != nil {
		h.writeEngineError(w, lerr)
		return
	}
	if perr != nil {
		h.writeEngineError(w, perr)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"register":           index,
		"label":              label,
		"ground_probability": p0,
		"excited_probability": p1,
		"purity":             purity,
		"component_members":  members,
	})
}

// HandleListComponents returns the entanglement partition
// GET /regions/{regionID}/components
func (h *Handler) HandleListComponents(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.region(w, r)
	if !ok {
		return
	}
	reg.Lock()
	components := reg.Computer.Components()
	reg.Unlock()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"components": components})
}

// HandleApplyGate applies a named gate
// POST /regions/{regionID}/gates
func (h *Handler) HandleApplyGate(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.region(w, r)
	if !ok {
		return
	}
	var req struct {
		Gate      string    `json:"gate"`
		Registers []int     `json:"registers"`
		Angle     []float64 `json:"angle,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Registers) < 1 || len(req.Registers) > 2 {
		h.writeError(w, http.StatusBadRequest, "Gates target one or two registers")
		return
	}
	regA := req.Registers[0]
	regB := -1
	if len(req.Registers) == 2 {
		regB = req.Registers[1]
	}

	reg.Lock()
	err := reg.Computer.ApplyNamedGate(req.Gate, regA, regB, req.Angle...)
	reg.Unlock()
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.emit(events.GateApplied, reg.ID, map[string]interface{}{
		"gate":      req.Gate,
		"registers": req.Registers,
	})
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "applied"})
}

// HandleEntangle couples two or more registers
// POST /regions/{regionID}/entangle
func (h *Handler) HandleEntangle(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.region(w, r)
	if !ok {
		return
	}
	var req struct {
		Registers []int `json:"registers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Registers) < 2 {
		h.writeError(w, http.StatusBadRequest, "Entanglement needs at least two registers")
		return
	}

	reg.Lock()
	errs := reg.Computer.EntangleChain(req.Registers)
	reg.Unlock()

	results := make([]map[string]interface{}, len(errs))
	failed := 0
	for i, err := range errs {
		link := map[string]interface{}{
			"from": req.Registers[i],
			"to":   req.Registers[i+1],
		}
		if err != nil {
			link["error"] = err.Error()
			failed++
		}
		results[i] = link
	}
	if failed == 0 {
		h.emit(events.ComponentsMerged, reg.ID, map[string]interface{}{"registers": req.Registers})
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"links": results, "failed": failed})
}

// HandleDisentangle discards correlations between two registers
// POST /regions/{regionID}/disentangle
func (h *Handler) HandleDisentangle(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.region(w, r)
	if !ok {
		return
	}
	var req struct {
		RegisterA int `json:"register_a"`
		RegisterB int `json:"register_b"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	reg.Lock()
	err := reg.Computer.RemoveEntanglement(req.RegisterA, req.RegisterB)
	reg.Unlock()
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.emit(events.EntanglementBroken, reg.ID, map[string]interface{}{
		"register_a": req.RegisterA,
		"register_b": req.RegisterB,
	})
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "separated"})
}

// HandleMeasure collapses one register
// POST /regions/{regionID}/measure
func (h *Handler) HandleMeasure(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.region(w, r)
	if !ok {
		return
	}
	var req struct {
		Register int `json:"register"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	reg.Lock()
	outcome, err := reg.Computer.MeasureAxis(req.Register)
	reg.Unlock()
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.emit(events.MeasurementTaken, reg.ID, map[string]interface{}{
		"register":    outcome.Register,
		"outcome":     outcome.Label,
		"probability": outcome.Probability,
	})
	h.writeJSON(w, http.StatusOK, outcome)
}

// HandleMeasureComponent collapses a whole entanglement component
// POST /regions/{regionID}/measure-component
func (h *Handler) HandleMeasureComponent(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.region(w, r)
	if !ok {
		return
	}
	var req struct {
		Register int `json:"register"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	reg.Lock()
	outcomes, err := reg.Computer.MeasureComponent(req.Register)
	reg.Unlock()
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.emit(events.MeasurementTaken, reg.ID, map[string]interface{}{
		"register":  req.Register,
		"cascade":   true,
		"registers": len(outcomes),
	})
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"outcomes": outcomes})
}

// HandleListChannels returns the installed noise channels
// GET /regions/{regionID}/channels
func (h *Handler) HandleListChannels(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.region(w, r)
	if !ok {
		return
	}
	reg.Lock()
	channels := reg.Channels.Channels()
	reg.Unlock()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"channels": channels})
}

// HandleInstallChannel installs a continuous channel
// POST /regions/{regionID}/channels
func (h *Handler) HandleInstallChannel(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.region(w, r)
	if !ok {
		return
	}
	var req struct {
		Kind     string  `json:"kind"`
		Name     string  `json:"name"`
		Register int     `json:"register"`
		Source   int     `json:"source"`
		Target   int     `json:"target"`
		Rate     float64 `json:"rate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	reg.Lock()
	var err error
	switch req.Kind {
	case string(quantum.ChannelDrive):
		err = reg.Channels.InstallDrive(req.Name, req.Register, req.Rate)
	case string(quantum.ChannelDecay):
		err = reg.Channels.InstallDecay(req.Name, req.Register, req.Rate)
	case string(quantum.ChannelPump):
		err = reg.Channels.InstallPump(req.Name, req.Register, req.Rate)
	case string(quantum.ChannelTransfer):
		err = reg.Channels.InstallTransfer(req.Name, req.Source, req.Target, req.Rate)
	default:
		reg.Unlock()
		h.writeError(w, http.StatusBadRequest, "Unknown channel kind: "+req.Kind)
		return
	}
	reg.Unlock()
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.emit(events.ChannelInstalled, reg.ID, map[string]interface{}{
		"name": req.Name,
		"kind": req.Kind,
		"rate": req.Rate,
	})
	h.writeJSON(w, http.StatusCreated, map[string]string{"status": "installed"})
}

// HandleRemoveChannel uninstalls a channel
// DELETE /regions/{regionID}/channels/{name}
func (h *Handler) HandleRemoveChannel(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.region(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")

	reg.Lock()
	err := reg.Channels.Remove(name)
	reg.Unlock()
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.emit(events.ChannelRemoved, reg.ID, map[string]interface{}{"name": name})
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// HandleSetDriver sets an oscillating drive on a register
// POST /regions/{regionID}/drivers
func (h *Handler) HandleSetDriver(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.region(w, r)
	if !ok {
		return
	}
	var req struct {
		Register  int     `json:"register"`
		Amplitude float64 `json:"amplitude"`
		Frequency float64 `json:"frequency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	reg.Lock()
	err := reg.Channels.SetDriver(req.Register, req.Amplitude, req.Frequency)
	reg.Unlock()
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "driving"})
}

// HandleClearDriver removes the oscillating drive from a register
// DELETE /regions/{regionID}/drivers/{register}
func (h *Handler) HandleClearDriver(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.region(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "register"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Register must be an integer")
		return
	}
	reg.Lock()
	reg.Channels.ClearDriver(index)
	reg.Unlock()
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// HandleApplyOnce applies a one-shot channel step without installing it
// POST /regions/{regionID}/apply
func (h *Handler) HandleApplyOnce(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.region(w, r)
	if !ok {
		return
	}
	var req struct {
		Kind     string  `json:"kind"`
		Register int     `json:"register"`
		Rate     float64 `json:"rate"`
		DT       float64 `json:"dt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	reg.Lock()
	var err error
	switch req.Kind {
	case string(quantum.ChannelDrive):
		err = reg.Channels.ApplyDrive(req.Register, req.Rate, req.DT)
	case string(quantum.ChannelDecay):
		err = reg.Channels.ApplyDecay(req.Register, req.Rate, req.DT)
	case string(quantum.ChannelPump):
		err = reg.Channels.ApplyPump(req.Register, req.Rate, req.DT)
	default:
		reg.Unlock()
		h.writeError(w, http.StatusBadRequest, "Unknown channel kind: "+req.Kind)
		return
	}
	reg.Unlock()
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "applied"})
}

// HandleTransfer moves excitation between two registers
// POST /regions/{regionID}/transfer
func (h *Handler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.region(w, r)
	if !ok {
		return
	}
	var req struct {
		Source int     `json:"source"`
		Target int     `json:"target"`
		Rate   float64 `json:"rate"`
		DT     float64 `json:"dt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	reg.Lock()
	err := reg.Channels.TransferPopulation(req.Source, req.Target, req.Rate, req.DT)
	reg.Unlock()
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "transferred"})
}

// HandleReset blends a register toward the pure ground state or the
// maximally mixed state
// POST /regions/{regionID}/reset
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.region(w, r)
	if !ok {
		return
	}
	var req struct {
		Register int     `json:"register"`
		Mode     string  `json:"mode"` // "pure" or "mixed"
		Alpha    float64 `json:"alpha"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	reg.Lock()
	var err error
	switch req.Mode {
	case "pure":
		err = reg.Channels.ResetToPure(req.Register, req.Alpha)
	case "mixed":
		err = reg.Channels.ResetToMixed(req.Register, req.Alpha)
	default:
		reg.Unlock()
		h.writeError(w, http.StatusBadRequest, "Mode must be \"pure\" or \"mixed\"")
		return
	}
	reg.Unlock()
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// HandleListTerminals returns the terminal pool
// GET /regions/{regionID}/terminals
func (h *Handler) HandleListTerminals(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.region(w, r)
	if !ok {
		return
	}
	reg.Lock()
	terminals := reg.Terminals.Terminals()
	reg.Unlock()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"terminals": terminals})
}

// HandleExplore binds a free terminal to a sampled register
// POST /regions/{regionID}/terminals/explore
func (h *Handler) HandleExplore(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.region(w, r)
	if !ok {
		return
	}
	reg.Lock()
	term, err := reg.Terminals.Explore()
	reg.Unlock()
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, term)
}

// HandleMeasureTerminal collapses a bound terminal's register
// POST /regions/{regionID}/terminals/{terminal}/measure
func (h *Handler) HandleMeasureTerminal(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.region(w, r)
	if !ok {
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "terminal"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Terminal must be an integer")
		return
	}

	reg.Lock()
	term, merr := reg.Terminals.Measure(id)
	reg.Unlock()
	if merr != nil {
		h.writeEngineError(w, merr)
		return
	}
	h.writeJSON(w, http.StatusOK, term)
}

// HandlePopTerminal harvests a measured terminal
// POST /regions/{regionID}/terminals/{terminal}/pop
func (h *Handler) HandlePopTerminal(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.region(w, r)
	if !ok {
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "terminal"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Terminal must be an integer")
		return
	}

	reg.Lock()
	result, perr := reg.Terminals.Pop(id)
	reg.Unlock()
	if perr != nil {
		h.writeEngineError(w, perr)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// HandleHarvestGlobal measures and pops every active terminal
// POST /regions/{regionID}/terminals/harvest
func (h *Handler) HandleHarvestGlobal(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.region(w, r)
	if !ok {
		return
	}
	reg.Lock()
	total, results := reg.Terminals.HarvestGlobal()
	reg.Unlock()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":    total,
		"harvests": results,
	})
}

// HandleLedger returns recent harvests
// GET /regions/{regionID}/ledger?limit=n
func (h *Handler) HandleLedger(w http.ResponseWriter, r *http.Request) {
	if h.ledger == nil {
		h.writeError(w, http.StatusServiceUnavailable, "Ledger disabled")
		return
	}
	regionID := chi.URLParam(r, "regionID")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.ledger.Recent(regionID, limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"harvests": entries})
}

// HandleLedgerTotal returns aggregate harvest totals
// GET /regions/{regionID}/ledger/total
func (h *Handler) HandleLedgerTotal(w http.ResponseWriter, r *http.Request) {
	if h.ledger == nil {
		h.writeError(w, http.StatusServiceUnavailable, "Ledger disabled")
		return
	}
	regionID := chi.URLParam(r, "regionID")

	total, err := h.ledger.TotalValue(regionID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	byOutcome, err := h.ledger.ValueByOutcome(regionID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":      total,
		"by_outcome": byOutcome,
	})
}

func (h *Handler) emit(eventType events.EventType, regionID string, data map[string]interface{}) {
	if h.events == nil {
		return
	}
	h.events.Emit(eventType, "region", regionID, data)
}

// writeEngineError maps engine error taxonomy to HTTP status codes.
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, quantum.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, quantum.ErrDimensionMismatch):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, quantum.ErrInvalidState):
		h.writeError(w, http.StatusConflict, err.Error())
	default:
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
