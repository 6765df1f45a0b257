package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/uxlens/uxlens/internal/middleware"
	"github.com/uxlens/uxlens/internal/services"
)

type Router struct {
	store        Store
	auth         *services.AuthService
	studies      *services.StudyService
	participants *services.ParticipantService
	responses    *services.ResponseService
	results      *services.ResultsService
	exports      *services.ExportService
}

func NewRouter() *Router {
	return NewRouterWithStore(newMemoryStore())
}

func NewRouterWithStore(store Store) *Router {
	return &Router{
		store:        store,
		auth:         services.NewAuthService(newAuthStoreAdapter(store), middleware.SignToken),
		studies:      services.NewStudyService(newStudyStoreAdapter(store)),
		participants: services.NewParticipantService(newParticipantStoreAdapter(store)),
		responses:    services.NewResponseService(newSubmissionStoreAdapter(store)),
		results:      services.NewResultsService(newResultStoreAdapter(store)),
		exports:      services.NewExportService(newResultStoreAdapter(store)),
	}
}

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/auth/register", rt.handleRegister) // POST
	mux.HandleFunc("/api/auth/login", rt.handleLogin)       // POST
	mux.HandleFunc("/api/studies", rt.handleStudies)        // GET list, POST create
	mux.HandleFunc("/api/studies/", rt.handleStudyScoped)   // everything under one study
	mux.HandleFunc("/api/participants/", rt.handleParticipantScoped)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	if se, ok := services.AsServiceError(err); ok {
		status := http.StatusBadRequest
		switch se.Code {
		case services.ErrorUnauthorized:
			status = http.StatusUnauthorized
		case services.ErrorForbidden:
			status = http.StatusForbidden
		case services.ErrorNotFound:
			status = http.StatusNotFound
		case services.ErrorConflict, services.ErrorLocked:
			status = http.StatusConflict
		}
		writeJSON(w, status, map[string]string{"error": se.Message, "code": string(se.Code)})
		return
	}
	switch {
	case errors.Is(err, services.ErrStudyNotActive):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, services.ErrAlreadyCompleted):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid, ok := middleware.UserIDFromContext(r.Context())
	if !ok || uid == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return "", false
	}
	return uid, true
}

// POST /api/auth/register
func (rt *Router) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := rt.auth.Register(req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": res.Token, "user_id": res.UserID})
}

// POST /api/auth/login
func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := rt.auth.Login(req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": res.Token, "user_id": res.UserID})
}

// GET|POST /api/studies
func (rt *Router) handleStudies(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		studies, err := rt.studies.ListStudies(uid)
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]*Study, 0, len(studies))
		for _, st := range studies {
			out = append(out, convertServiceStudy(st))
		}
		writeJSON(w, http.StatusOK, map[string]any{"studies": out})
	case http.MethodPost:
		var req struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Type        string `json:"type"`
			SortingType string `json:"sorting_type"`
			ImageURL    string `json:"image_url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		st, err := rt.studies.CreateStudy(uid, &services.Study{
			Title:       req.Title,
			Description: req.Description,
			Type:        services.StudyType(req.Type),
			SortingType: services.SortingType(req.SortingType),
			ImageURL:    req.ImageURL,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, convertServiceStudy(st))
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleStudyScoped dispatches /api/studies/{id}[/...].
func (rt *Router) handleStudyScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/studies/")
	parts := strings.Split(rest, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	studyID := parts[0]
	if len(parts) == 1 {
		rt.handleStudy(w, r, studyID)
		return
	}
	switch parts[1] {
	case "status":
		rt.handleStudyStatus(w, r, studyID)
	case "content":
		rt.handleStudyContent(w, r, studyID)
	case "cards":
		rt.handleCards(w, r, studyID, parts[2:])
	case "categories":
		rt.handleCategories(w, r, studyID, parts[2:])
	case "tree-nodes":
		rt.handleTreeNodes(w, r, studyID, parts[2:])
	case "tasks":
		rt.handleTasks(w, r, studyID, parts[2:])
	case "participants":
		rt.handleStudyParticipants(w, r, studyID)
	case "responses":
		rt.handleSubmit(w, r, studyID)
	case "results":
		rt.handleResults(w, r, studyID)
	case "export":
		rt.handleExport(w, r, studyID)
	case "heatmap.png":
		rt.handleHeatmap(w, r, studyID)
	default:
		http.NotFound(w, r)
	}
}

// GET|PATCH|DELETE /api/studies/{id}
func (rt *Router) handleStudy(w http.ResponseWriter, r *http.Request, studyID string) {
	switch r.Method {
	case http.MethodGet:
		// Public: participants need the study shell to render the session.
		st, err := rt.studies.GetStudy(studyID)
		if err != nil {
			writeError(w, err)
			return
		}
		out := convertServiceStudy(st)
		out.OwnerID = ""
		writeJSON(w, http.StatusOK, out)
	case http.MethodPatch:
		uid, ok := requireUser(w, r)
		if !ok {
			return
		}
		var req struct {
			Title       *string `json:"title"`
			Description *string `json:"description"`
			ImageURL    *string `json:"image_url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		st, err := rt.studies.UpdateStudy(uid, studyID, req.Title, req.Description, req.ImageURL)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, convertServiceStudy(st))
	case http.MethodDelete:
		uid, ok := requireUser(w, r)
		if !ok {
			return
		}
		if err := rt.studies.DeleteStudy(uid, studyID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// PATCH /api/studies/{id}/status {"status":"ACTIVE"|"CLOSED"}
func (rt *Router) handleStudyStatus(w http.ResponseWriter, r *http.Request, studyID string) {
	if r.Method != http.MethodPatch {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	st, err := rt.studies.SetStatus(uid, studyID, services.StudyStatus(req.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, convertServiceStudy(st))
}

// GET /api/studies/{id}/content is public, the participant session needs it.
func (rt *Router) handleStudyContent(w http.ResponseWriter, r *http.Request, studyID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if _, err := rt.studies.GetStudy(studyID); err != nil {
		writeError(w, err)
		return
	}
	content, err := rt.studies.Content(studyID)
	if err != nil {
		writeError(w, err)
		return
	}
	cards := make([]*Card, 0, len(content.Cards))
	for _, c := range content.Cards {
		cards = append(cards, convertServiceCard(c))
	}
	categories := make([]*Category, 0, len(content.Categories))
	for _, c := range content.Categories {
		categories = append(categories, convertServiceCategory(c))
	}
	nodes := make([]*TreeNode, 0, len(content.TreeNodes))
	for _, n := range content.TreeNodes {
		nodes = append(nodes, convertServiceTreeNode(n))
	}
	tasks := make([]*Task, 0, len(content.Tasks))
	for _, t := range content.Tasks {
		tasks = append(tasks, convertServiceTask(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cards":      cards,
		"categories": categories,
		"tree_nodes": nodes,
		"tasks":      tasks,
	})
}

func (rt *Router) handleCards(w http.ResponseWriter, r *http.Request, studyID string, rest []string) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	if len(rest) > 0 && rest[0] == "reorder" {
		rt.handleReorder(w, r, uid, studyID, rt.studies.ReorderCards)
		return
	}
	if len(rest) > 0 && rest[0] != "" {
		cardID := rest[0]
		switch r.Method {
		case http.MethodPatch:
			var req struct {
				Label string `json:"label"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if err := rt.studies.UpdateCard(uid, studyID, &services.Card{ID: cardID, Label: req.Label}); err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		case http.MethodDelete:
			if err := rt.studies.DeleteCard(uid, studyID, cardID); err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Label string `json:"label"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c, err := rt.studies.AddCard(uid, studyID, req.Label)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, convertServiceCard(c))
}

func (rt *Router) handleCategories(w http.ResponseWriter, r *http.Request, studyID string, rest []string) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	if len(rest) > 0 && rest[0] != "" {
		categoryID := rest[0]
		switch r.Method {
		case http.MethodPatch:
			var req struct {
				Name string `json:"name"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if err := rt.studies.UpdateCategory(uid, studyID, &services.Category{ID: categoryID, Name: req.Name}); err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		case http.MethodDelete:
			if err := rt.studies.DeleteCategory(uid, studyID, categoryID); err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c, err := rt.studies.AddCategory(uid, studyID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, convertServiceCategory(c))
}

func (rt *Router) handleTreeNodes(w http.ResponseWriter, r *http.Request, studyID string, rest []string) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	if len(rest) > 0 && rest[0] == "reorder" {
		rt.handleReorder(w, r, uid, studyID, rt.studies.ReorderTreeNodes)
		return
	}
	if len(rest) > 0 && rest[0] != "" {
		nodeID := rest[0]
		switch r.Method {
		case http.MethodPatch:
			var req struct {
				Label    string `json:"label"`
				ParentID string `json:"parent_id"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if err := rt.studies.UpdateTreeNode(uid, studyID, &services.TreeNode{ID: nodeID, Label: req.Label, ParentID: req.ParentID}); err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		case http.MethodDelete:
			if err := rt.studies.DeleteTreeNode(uid, studyID, nodeID); err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Label    string `json:"label"`
		ParentID string `json:"parent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	n, err := rt.studies.AddTreeNode(uid, studyID, req.Label, req.ParentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, convertServiceTreeNode(n))
}

func (rt *Router) handleTasks(w http.ResponseWriter, r *http.Request, studyID string, rest []string) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	if len(rest) > 0 && rest[0] == "reorder" {
		rt.handleReorder(w, r, uid, studyID, rt.studies.ReorderTasks)
		return
	}
	if len(rest) > 0 && rest[0] != "" {
		taskID := rest[0]
		switch r.Method {
		case http.MethodPatch:
			var req Task
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			req.ID = taskID
			if err := rt.studies.UpdateTask(uid, studyID, convertAPITask(&req)); err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		case http.MethodDelete:
			if err := rt.studies.DeleteTask(uid, studyID, taskID); err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req Task
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	task, err := rt.studies.AddTask(uid, studyID, convertAPITask(&req))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, convertServiceTask(task))
}

// POST .../reorder {"order":["id1","id2",...]}
func (rt *Router) handleReorder(w http.ResponseWriter, r *http.Request, uid, studyID string, reorder func(string, string, []string) (int, error)) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Order []string `json:"order"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	n, err := reorder(uid, studyID, req.Order)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": n})
}

// POST /api/studies/{id}/participants starts a public session.
// GET  /api/studies/{id}/participants lists sessions for the researcher.
func (rt *Router) handleStudyParticipants(w http.ResponseWriter, r *http.Request, studyID string) {
	switch r.Method {
	case http.MethodPost:
		p, err := rt.participants.Start(studyID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, convertServiceParticipant(p))
	case http.MethodGet:
		uid, ok := requireUser(w, r)
		if !ok {
			return
		}
		ps, err := rt.participants.List(studyID, uid)
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]*Participant, 0, len(ps))
		for _, p := range ps {
			out = append(out, convertServiceParticipant(p))
		}
		writeJSON(w, http.StatusOK, map[string]any{"participants": out})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// DELETE /api/participants/{pid}
func (rt *Router) handleParticipantScoped(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	pid := strings.TrimPrefix(r.URL.Path, "/api/participants/")
	if pid == "" || strings.Contains(pid, "/") {
		http.NotFound(w, r)
		return
	}
	if err := rt.participants.Delete(pid, uid); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// POST /api/studies/{id}/responses accepts the public submission.
func (rt *Router) handleSubmit(w http.ResponseWriter, r *http.Request, studyID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ParticipantID string                        `json:"participant_id"`
		Type          string                        `json:"type"`
		Cards         []services.CardPlacementInput `json:"cards"`
		TreeAnswers   []services.TreeAnswerInput    `json:"tree_answers"`
		Clicks        []services.ClickInput         `json:"clicks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := rt.responses.Submit(services.SubmitRequest{
		StudyID:       studyID,
		ParticipantID: req.ParticipantID,
		Type:          services.StudyType(req.Type),
		Cards:         req.Cards,
		TreeAnswers:   req.TreeAnswers,
		Clicks:        req.Clicks,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":             true,
		"participant_id": res.ParticipantID,
		"count":          res.ResultCount,
		"completed_at":   res.CompletedAt,
	})
}

// GET /api/studies/{id}/results?participant=&kind=&task=
func (rt *Router) handleResults(w http.ResponseWriter, r *http.Request, studyID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	st, err := rt.studies.GetStudy(studyID)
	if err != nil {
		writeError(w, err)
		return
	}
	participant := r.URL.Query().Get("participant")
	switch services.StudyType(st.Type) {
	case services.StudyCardSorting:
		view, err := rt.results.CardSortView(studyID, uid, participant, r.URL.Query().Get("kind"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	case services.StudyTreeTesting:
		view, err := rt.results.TreeTestView(studyID, uid, participant)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	case services.StudyFirstClick:
		view, err := rt.results.FirstClickView(studyID, uid, r.URL.Query().Get("task"), participant)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	default:
		writeError(w, services.NewInvalidError("unknown study type"))
	}
}

// GET /api/studies/{id}/export?format=csv|json
func (rt *Router) handleExport(w http.ResponseWriter, r *http.Request, studyID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	res, err := rt.exports.Export(services.ExportParams{
		StudyID: studyID,
		OwnerID: uid,
		Format:  r.URL.Query().Get("format"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+res.Filename)
	_, _ = w.Write(res.Data)
}

// GET /api/studies/{id}/heatmap.png?task=&participant=&width=&height=
func (rt *Router) handleHeatmap(w http.ResponseWriter, r *http.Request, studyID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	view, err := rt.results.FirstClickView(studyID, uid, r.URL.Query().Get("task"), r.URL.Query().Get("participant"))
	if err != nil {
		writeError(w, err)
		return
	}
	width := queryInt(r, "width", 1000)
	height := queryInt(r, "height", 700)
	w.Header().Set("Content-Type", "image/png")
	if err := services.EncodeHeatmapPNG(w, view.Clicks, services.HeatmapOptions{
		Width:        width,
		Height:       height,
		ShowOrdinals: true,
	}); err != nil {
		writeError(w, err)
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 || n > 4000 {
		return fallback
	}
	return n
}
