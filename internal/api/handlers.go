package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"roteirista/internal/batch"
	"roteirista/internal/calibration"
	"roteirista/internal/crawler"
	"roteirista/internal/llm"
	"roteirista/internal/model"
	"roteirista/internal/repository"
	"roteirista/internal/roteiro"
	"roteirista/internal/session"
)

const (
	maxBodyBytes   = 20 << 20
	defaultHistory = 20
	maxHistory     = 200
)

type imagePayload struct {
	MIME string `json:"mime"`
	Data []byte `json:"dados"`
}

type generateRequest struct {
	Facts         string         `json:"ficha"`
	Images        []imagePayload `json:"imagens"`
	Code          string         `json:"codigo"`
	ProductName   string         `json:"nome_produto"`
	SubCodes      string         `json:"sub_codigos"`
	SupplierVideo string         `json:"video_fornecedor"`
	WorkMode      string         `json:"modo_trabalho"`
	Month         string         `json:"mes"`
	Date          string         `json:"data"`
	Model         string         `json:"modelo"`
	SessionID     string         `json:"sessao_id"`
}

type generateResponse struct {
	*roteiro.Result
	Facts     string `json:"ficha"`
	SessionID string `json:"sessao_id,omitempty"`
}

type batchRequest struct {
	Codes    string `json:"codigos"`
	WorkMode string `json:"modo_trabalho"`
	Month    string `json:"mes"`
	Model    string `json:"modelo"`
}

type batchResponse struct {
	Items []batch.Item `json:"itens"`
	Total int          `json:"total"`
	OK    int          `json:"ok"`
}

type calibrateRequest struct {
	Original     string `json:"roteiro_original"`
	Approved     string `json:"roteiro_aprovado"`
	Code         string `json:"codigo"`
	ProductTitle string `json:"titulo"`
	WorkMode     string `json:"modo_trabalho"`
	SessionID    string `json:"sessao_id"`
}

type modelInfo struct {
	Label string `json:"rotulo"`
	llm.ModelSpec
	Available bool `json:"disponivel"`
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "corpo da requisição inválido")
		return false
	}
	return true
}

// statusFor traduz os erros de geração: credencial ausente é erro do
// usuário, falha do provedor é 502.
func statusFor(err error) int {
	var missing *llm.MissingCredentialError
	if errors.As(err, &missing) {
		return http.StatusBadRequest
	}
	var callErr *llm.ProviderCallError
	if errors.As(err, &callErr) {
		return http.StatusBadGateway
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var body generateRequest
	if !decode(w, r, &body) {
		return
	}
	ctx := r.Context()

	req := roteiro.Request{
		Facts:         model.Facts{Text: strings.TrimSpace(body.Facts)},
		WorkMode:      body.WorkMode,
		Month:         body.Month,
		ProductCode:   strings.TrimSpace(body.Code),
		ProductName:   body.ProductName,
		SubCodes:      body.SubCodes,
		SupplierVideo: body.SupplierVideo,
		ModelID:       llm.LookupLabel(strings.TrimSpace(body.Model)),
	}
	if body.Date != "" {
		d, err := time.Parse("02/01/2006", strings.TrimSpace(body.Date))
		if err != nil {
			writeError(w, http.StatusBadRequest, "data deve estar no formato dd/mm/aaaa")
			return
		}
		req.Date = d
	}
	for _, img := range body.Images {
		if len(img.Data) > 0 {
			req.Facts.Images = append(req.Facts.Images, model.Image{Data: img.Data, MIME: img.MIME})
		}
	}

	if !req.Facts.HasContent() && req.ProductCode != "" && s.Facts != nil {
		facts, err := s.Facts.FetchFacts(ctx, req.ProductCode)
		if err != nil {
			s.logger().Warn("ficha não extraída", zap.String("produto", req.ProductCode), zap.Error(err))
		}
		req.Facts = facts
		req.ProductCode = crawler.NormalizeCode(req.ProductCode)
	}

	res, err := s.Generator.Generate(ctx, req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if s.Recorder != nil {
		s.Recorder.Record(ctx, req, res)
	}

	writeJSON(w, http.StatusOK, generateResponse{
		Result:    res,
		Facts:     req.Facts.Text,
		SessionID: s.rememberDraft(ctx, body.SessionID, req, res),
	})
}

// rememberDraft guarda o rascunho na sessão. Falhas de sessão não afetam a
// resposta.
func (s *Server) rememberDraft(ctx context.Context, id string, req roteiro.Request, res *roteiro.Result) string {
	if s.Sessions == nil {
		return ""
	}
	sess := s.loadSession(ctx, id)
	if req.ModelID != "" {
		sess.ModelID = req.ModelID
	}
	if req.WorkMode != "" {
		sess.WorkMode = req.WorkMode
	}
	if req.Month != "" {
		sess.Month = req.Month
	}
	sess.AddDraft(session.Draft{
		ProductCode: req.ProductCode,
		ProductName: req.ProductName,
		Original:    res.Text,
		ModelID:     res.ModelID,
	})
	if err := s.Sessions.Save(ctx, sess); err != nil {
		s.logger().Warn("falha ao salvar sessão", zap.String("sessao", sess.ID), zap.Error(err))
		return ""
	}
	return sess.ID
}

func (s *Server) loadSession(ctx context.Context, id string) *session.Session {
	if id != "" {
		sess, err := s.Sessions.Get(ctx, id)
		if err == nil {
			return sess
		}
		if !errors.Is(err, session.ErrNotFound) {
			s.logger().Warn("falha ao ler sessão", zap.String("sessao", id), zap.Error(err))
		}
	}
	sess := session.New("", "", "")
	if id != "" {
		sess.ID = id
	}
	return sess
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var body batchRequest
	if !decode(w, r, &body) {
		return
	}
	codes := crawler.ParseCodes(body.Codes)
	if len(codes) == 0 {
		writeError(w, http.StatusBadRequest, "informe ao menos um código")
		return
	}

	items := s.Batch.Run(r.Context(), codes, roteiro.Request{
		WorkMode: body.WorkMode,
		Month:    body.Month,
		ModelID:  llm.LookupLabel(strings.TrimSpace(body.Model)),
	})

	resp := batchResponse{Items: items, Total: len(codes)}
	for _, it := range items {
		if it.Status == batch.StatusOK {
			resp.OK++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	var body calibrateRequest
	if !decode(w, r, &body) {
		return
	}
	ctx := r.Context()

	var sess *session.Session
	if body.SessionID != "" && s.Sessions != nil {
		if got, err := s.Sessions.Get(ctx, body.SessionID); err == nil {
			sess = got
		}
	}
	if strings.TrimSpace(body.Original) == "" && sess != nil {
		if d, ok := sess.LastDraft(); ok {
			body.Original = d.Original
			if body.Code == "" {
				body.Code = d.ProductCode
			}
		}
	}
	if strings.TrimSpace(body.Original) == "" || strings.TrimSpace(body.Approved) == "" {
		writeError(w, http.StatusBadRequest, "roteiro_original e roteiro_aprovado são obrigatórios")
		return
	}

	out := s.Calibrator.Calibrate(ctx, calibration.Input{
		OriginalText:  body.Original,
		ApprovedText:  body.Approved,
		Categories:    s.Store.Categories(ctx),
		SuggestedCode: body.Code,
		ProductTitle:  body.ProductTitle,
		WorkMode:      body.WorkMode,
	})

	if sess != nil && sess.Approve(body.Code, body.Approved) {
		if err := s.Sessions.Save(ctx, sess); err != nil {
			s.logger().Warn("falha ao salvar sessão", zap.String("sessao", sess.ID), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats := s.Store.Categories(r.Context())
	if cats == nil {
		cats = []model.Category{}
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleModels(w http.ResponseWriter, _ *http.Request) {
	available := map[llm.Provider]bool{}
	if s.Providers != nil {
		for _, p := range s.Providers.Available() {
			available[p] = true
		}
	}
	var out []modelInfo
	for _, e := range llm.Catalog() {
		spec := llm.Spec(s.costs(), e.ID)
		out = append(out, modelInfo{Label: e.Label, ModelSpec: spec, Available: available[spec.Provider]})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) familyStore(r *http.Request) repository.Store {
	return s.Store.WithFamily(repository.FamilyForMode(r.URL.Query().Get("modo")))
}

func limit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limite"))
	if err != nil || n <= 0 {
		return defaultHistory
	}
	if n > maxHistory {
		return maxHistory
	}
	return n
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries := s.familyStore(r).RecentGenerations(r.Context(), limit(r))
	if entries == nil {
		entries = []model.GenerationLogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleCalibrationHistory(w http.ResponseWriter, r *http.Request) {
	gold := s.familyStore(r).GoldScriptHistory(r.Context(), limit(r))
	if gold == nil {
		gold = []model.GoldScript{}
	}
	writeJSON(w, http.StatusOK, gold)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if s.Sessions == nil {
		writeError(w, http.StatusNotFound, "sessões desativadas")
		return
	}
	sess, err := s.Sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusNotFound, "sessão não encontrada")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess)
}
