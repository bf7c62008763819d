package main

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sevencars/estimation/internal/config"
	"github.com/sevencars/estimation/internal/currency"
	"github.com/sevencars/estimation/internal/db"
	"github.com/sevencars/estimation/internal/estimate"
	"github.com/sevencars/estimation/internal/export"
	"github.com/sevencars/estimation/internal/marketlink"
	"github.com/sevencars/estimation/internal/migrations"
	"github.com/sevencars/estimation/internal/pricing"
	"github.com/sevencars/estimation/internal/seed"
)

type server struct {
	auth         *authService
	db           *sql.DB
	store        *estimate.Store
	templatesDir string
}

// dealershipParams is the singleton edited on the admin page: the garage
// identity printed on exports plus the pricing policy.
type dealershipParams struct {
	GarageName string
	Pricing    pricing.Params
}

type baseViewData struct {
	ErrorMessage   string
	SuccessMessage string
	WarningMessage string
}

type loginViewData struct {
	baseViewData
}

type estimateFormValues struct {
	Brand             string
	Model             string
	Year              int
	Mileage           int
	ResalePrice       float64
	RefurbishmentCost float64
	Regime            pricing.VATRegime
}

type estimateResultView struct {
	EstimationID int64
	Reference    string
	Vehicle      string
	Offer        string
	ResalePrice  string
	TargetMargin string
	VATPayable   string
	TotalCosts   string
	RegimeLabel  string
	Saved        bool
}

type estimateViewData struct {
	baseViewData
	Form        estimateFormValues
	RegimeValue string
	MarketLink  string
	Result      *estimateResultView
}

type historyListItem struct {
	ID          int64
	CreatedAt   string
	Vehicle     string
	RegimeLabel string
	ResalePrice string
	Offer       string
}

type historyViewData struct {
	baseViewData
	Estimations []historyListItem
}

type paramsForm struct {
	GarageName       string
	NetMarginPercent float64
	FixedFee         float64
	VATPercent       float64
}

type paramsViewData struct {
	baseViewData
	Params paramsForm
}

func main() {
	cfg := config.Load()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	if cfg.IsDev() {
		if err := migrations.Up(database, "migrations"); err != nil {
			log.Fatalf("failed to run database migrations: %v", err)
		}
	}

	stats, err := seed.Run(database, seed.Config{
		AdminEmail:    cfg.AdminEmail,
		AdminPassword: cfg.AdminPassword,
		GarageName:    cfg.GarageName,
	})
	if err != nil {
		log.Fatalf("failed to run startup seed: %v", err)
	}
	if stats.Inserts > 0 {
		log.Printf("startup seed applied %d inserts", stats.Inserts)
	}

	srv := &server{
		auth:         newAuthService(database, cfg.SessionSecret),
		db:           database,
		store:        estimate.NewStore(database),
		templatesDir: "web/templates",
	}

	r := chi.NewRouter()
	r.Use(srv.authMiddleware)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir("web/static"))))
	r.Get("/", srv.handleEstimationForm)
	r.Post("/estimate", srv.handleEstimate)
	r.Get("/history", srv.handleHistory)
	r.Get("/estimations/{id}/export.xlsx", srv.handleExportExcel)
	r.Get("/estimations/{id}/export.pdf", srv.handleExportPDF)
	r.Get("/admin/params", srv.handleAdminParamsForm)
	r.Post("/admin/params", srv.handleAdminParamsSubmit)
	r.Get("/login", srv.handleLoginForm)
	r.Post("/login", srv.handleLoginSubmit)
	r.Post("/logout", srv.handleLogout)

	addr := ":" + cfg.Port
	log.Printf("listening on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func defaultEstimateForm() estimateFormValues {
	return estimateFormValues{
		Brand:             "Audi",
		Model:             "A3",
		Year:              2019,
		Mileage:           80000,
		ResalePrice:       22000,
		RefurbishmentCost: 1500,
		Regime:            pricing.RegimeMargin,
	}
}

func (s *server) handleEstimationForm(w http.ResponseWriter, r *http.Request) {
	form := defaultEstimateForm()
	s.renderTemplate(w, "estimate.html", estimateViewData{
		Form:        form,
		RegimeValue: form.Regime.FormValue(),
		MarketLink:  marketlink.AutoScoutURL(form.Brand, form.Model, form.Year, form.Mileage),
	})
}

func (s *server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	form, validationErr := parseEstimateForm(r)
	view := estimateViewData{
		Form:        form,
		RegimeValue: form.Regime.FormValue(),
	}
	if form.Brand != "" && form.Model != "" && form.Year > 0 {
		view.MarketLink = marketlink.AutoScoutURL(form.Brand, form.Model, form.Year, form.Mileage)
	}

	if validationErr != nil {
		view.ErrorMessage = validationErr.Error()
		w.WriteHeader(http.StatusBadRequest)
		s.renderTemplate(w, "estimate.html", view)
		return
	}

	params, err := s.getParams()
	if err != nil {
		http.Error(w, "failed to load pricing params", http.StatusInternalServerError)
		return
	}

	result := pricing.ComputeOffer(form.ResalePrice, form.RefurbishmentCost, form.Regime, params.Pricing).Rounded()

	if result.MaxPurchasePrice <= 0 {
		view.WarningMessage = "Avec ces paramètres, le prix d'achat ressort négatif ou nul. " +
			"Revois soit la marge, soit le prix de revente estimé, soit les frais."
		s.renderTemplate(w, "estimate.html", view)
		return
	}

	record := estimate.Record{
		CreatedAt:         time.Now(),
		Reference:         uuid.NewString(),
		Garage:            params.GarageName,
		Brand:             form.Brand,
		Model:             form.Model,
		Year:              form.Year,
		Mileage:           form.Mileage,
		Regime:            form.Regime,
		ResalePrice:       form.ResalePrice,
		RefurbishmentCost: form.RefurbishmentCost,
		TotalCosts:        result.TotalCosts,
		TargetMargin:      result.TargetMargin,
		VATPayable:        result.VATPayable,
		MaxPurchasePrice:  result.MaxPurchasePrice,
	}

	resultView := &estimateResultView{
		Reference:    record.Reference,
		Vehicle:      fmt.Sprintf("%s %s · %d · %d km", form.Brand, form.Model, form.Year, form.Mileage),
		Offer:        currency.CHF(result.MaxPurchasePrice),
		ResalePrice:  currency.CHF(form.ResalePrice),
		TargetMargin: currency.CHF(result.TargetMargin),
		VATPayable:   currency.CHF(result.VATPayable),
		TotalCosts:   currency.CHF(result.TotalCosts),
		RegimeLabel:  form.Regime.Label(),
	}

	// A failed history write is reported but never blocks the estimation.
	id, err := s.store.Append(record)
	if err != nil {
		log.Printf("failed to append estimation to history: %v", err)
		view.ErrorMessage = "L'estimation n'a pas pu être enregistrée dans l'historique."
	} else {
		resultView.EstimationID = id
		resultView.Saved = true
	}

	view.Result = resultView
	s.renderTemplate(w, "estimate.html", view)
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.List()
	if err != nil {
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}

	items := make([]historyListItem, 0, len(records))
	for _, record := range records {
		items = append(items, historyListItem{
			ID:          record.ID,
			CreatedAt:   record.CreatedAt.Format("02.01.2006 15:04"),
			Vehicle:     fmt.Sprintf("%s %s · %d · %d km", record.Brand, record.Model, record.Year, record.Mileage),
			RegimeLabel: record.Regime.Label(),
			ResalePrice: currency.CHF(record.ResalePrice),
			Offer:       currency.CHF(record.MaxPurchasePrice),
		})
	}

	s.renderTemplate(w, "history.html", historyViewData{Estimations: items})
}

func (s *server) handleExportExcel(w http.ResponseWriter, r *http.Request) {
	record, ok := s.recordFromRequest(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.Excel(&buf, record); err != nil {
		log.Printf("failed to generate xlsx export: %v", err)
		http.Error(w, "failed to generate export", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+exportFileName(record, "xlsx"))
	_, _ = w.Write(buf.Bytes())
}

func (s *server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	record, ok := s.recordFromRequest(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.PDF(&buf, record); err != nil {
		log.Printf("failed to generate pdf export: %v", err)
		http.Error(w, "failed to generate export", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename="+exportFileName(record, "pdf"))
	_, _ = w.Write(buf.Bytes())
}

func (s *server) recordFromRequest(w http.ResponseWriter, r *http.Request) (estimate.Record, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid estimation id", http.StatusBadRequest)
		return estimate.Record{}, false
	}

	record, err := s.store.Get(id)
	if errors.Is(err, estimate.ErrNotFound) {
		http.NotFound(w, r)
		return estimate.Record{}, false
	}
	if err != nil {
		http.Error(w, "failed to load estimation", http.StatusInternalServerError)
		return estimate.Record{}, false
	}

	return record, true
}

func exportFileName(record estimate.Record, extension string) string {
	name := fmt.Sprintf("estimation_%s_%s_%d.%s", record.Brand, record.Model, record.Year, extension)
	return strings.ReplaceAll(name, " ", "_")
}

func (s *server) handleAdminParamsForm(w http.ResponseWriter, r *http.Request) {
	params, err := s.getParams()
	if err != nil {
		http.Error(w, "failed to load pricing params", http.StatusInternalServerError)
		return
	}

	s.renderTemplate(w, "admin_params.html", paramsViewData{Params: paramsFormFromParams(params)})
}

func (s *server) handleAdminParamsSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	form, validationErr := parseParamsForm(r)
	if validationErr != nil {
		w.WriteHeader(http.StatusBadRequest)
		s.renderTemplate(w, "admin_params.html", paramsViewData{
			baseViewData: baseViewData{ErrorMessage: validationErr.Error()},
			Params:       form,
		})
		return
	}

	if err := s.updateParams(form.toParams()); err != nil {
		http.Error(w, "failed to save pricing params", http.StatusInternalServerError)
		return
	}

	s.renderTemplate(w, "admin_params.html", paramsViewData{
		baseViewData: baseViewData{SuccessMessage: "Paramètres enregistrés."},
		Params:       form,
	})
}

func (s *server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if isAuthenticated(r, s.auth) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.renderTemplate(w, "login.html", loginViewData{})
}

func (s *server) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	email := r.FormValue("email")
	password := r.FormValue("password")
	valid, err := s.auth.validateCredentials(email, password)
	if err != nil {
		http.Error(w, "authentication error", http.StatusInternalServerError)
		return
	}
	if !valid {
		w.WriteHeader(http.StatusUnauthorized)
		s.renderTemplate(w, "login.html", loginViewData{baseViewData: baseViewData{ErrorMessage: "Identifiants invalides. Réessaie."}})
		return
	}

	s.auth.setSessionCookie(w, email)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func parseEstimateForm(r *http.Request) (estimateFormValues, error) {
	form := estimateFormValues{
		Brand: strings.TrimSpace(r.FormValue("brand")),
		Model: strings.TrimSpace(r.FormValue("model")),
	}

	if form.Brand == "" {
		return form, fmt.Errorf("la marque est requise")
	}
	if form.Model == "" {
		return form, fmt.Errorf("le modèle est requis")
	}

	var err error
	if form.Year, err = parseIntInRange(r.FormValue("year"), "année", 1980, 2100); err != nil {
		return form, err
	}
	if form.Mileage, err = parseIntInRange(r.FormValue("mileage"), "kilométrage", 0, 500000); err != nil {
		return form, err
	}
	if form.ResalePrice, err = parsePositiveFloat(r.FormValue("resale_price"), "prix de revente estimé"); err != nil {
		return form, err
	}
	if form.RefurbishmentCost, err = parseNonNegativeFloat(r.FormValue("refurbishment_cost"), "frais de remise en état"); err != nil {
		return form, err
	}

	regime, ok := pricing.ParseRegime(r.FormValue("vat_regime"))
	if !ok {
		return form, fmt.Errorf("origine TVA invalide")
	}
	form.Regime = regime

	return form, nil
}

func paramsFormFromParams(p dealershipParams) paramsForm {
	return paramsForm{
		GarageName:       p.GarageName,
		NetMarginPercent: p.Pricing.NetMarginRate * 100,
		FixedFee:         p.Pricing.FixedFee,
		VATPercent:       p.Pricing.VATRate * 100,
	}
}

func (f paramsForm) toParams() dealershipParams {
	return dealershipParams{
		GarageName: f.GarageName,
		Pricing: pricing.Params{
			NetMarginRate: f.NetMarginPercent / 100,
			FixedFee:      f.FixedFee,
			VATRate:       f.VATPercent / 100,
		},
	}
}

func parseParamsForm(r *http.Request) (paramsForm, error) {
	form := paramsForm{
		GarageName: strings.TrimSpace(r.FormValue("garage_name")),
	}

	if form.GarageName == "" {
		return form, fmt.Errorf("le nom du garage est requis")
	}

	var err error
	if form.NetMarginPercent, err = parsePercent(r.FormValue("net_margin_percent"), "marge nette (%)"); err != nil {
		return form, err
	}
	if form.FixedFee, err = parseNonNegativeFloat(r.FormValue("fixed_fee"), "frais fixes"); err != nil {
		return form, err
	}
	if form.VATPercent, err = parsePercent(r.FormValue("vat_percent"), "taux de TVA (%)"); err != nil {
		return form, err
	}

	return form, nil
}

func parseNonNegativeFloat(raw, field string) (float64, error) {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s doit être numérique", field)
	}
	if value < 0 {
		return 0, fmt.Errorf("%s doit être supérieur ou égal à 0", field)
	}
	return value, nil
}

func parsePositiveFloat(raw, field string) (float64, error) {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s doit être numérique", field)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%s doit être supérieur à 0", field)
	}
	return value, nil
}

func parsePercent(raw, field string) (float64, error) {
	value, err := parseNonNegativeFloat(raw, field)
	if err != nil {
		return 0, err
	}
	if value > 100 {
		return 0, fmt.Errorf("%s doit être entre 0 et 100", field)
	}
	return value, nil
}

func parseIntInRange(raw, field string, min, max int) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s doit être un entier", field)
	}
	if value < min || value > max {
		return 0, fmt.Errorf("%s doit être entre %d et %d", field, min, max)
	}
	return value, nil
}

// getParams reads the singleton ensured by the startup seed; requests never
// write to it.
func (s *server) getParams() (dealershipParams, error) {
	var p dealershipParams
	err := s.db.QueryRow(`
		SELECT garage_name, net_margin_rate, fixed_fee, vat_rate
		FROM pricing_params
		WHERE id = 1
	`).Scan(&p.GarageName, &p.Pricing.NetMarginRate, &p.Pricing.FixedFee, &p.Pricing.VATRate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dealershipParams{}, fmt.Errorf("pricing_params singleton not found")
		}
		return dealershipParams{}, fmt.Errorf("query pricing_params: %w", err)
	}
	return p, nil
}

func (s *server) updateParams(p dealershipParams) error {
	_, err := s.db.Exec(`
		UPDATE pricing_params
		SET
			garage_name = ?,
			net_margin_rate = ?,
			fixed_fee = ?,
			vat_rate = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
	`, p.GarageName, p.Pricing.NetMarginRate, p.Pricing.FixedFee, p.Pricing.VATRate)
	if err != nil {
		return fmt.Errorf("update pricing_params: %w", err)
	}

	return nil
}

func (s *server) renderTemplate(w http.ResponseWriter, page string, data any) {
	dir := s.templatesDir
	if dir == "" {
		dir = "web/templates"
	}

	templates, err := template.ParseFiles(
		dir+"/layout.html",
		dir+"/"+page,
	)
	if err != nil {
		http.Error(w, "failed to parse template", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ExecuteTemplate(w, "layout.html", data); err != nil {
		http.Error(w, "failed to render template", http.StatusInternalServerError)
		return
	}
}

func (s *server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" || r.URL.Path == "/static" || strings.HasPrefix(r.URL.Path, "/static/") {
			next.ServeHTTP(w, r)
			return
		}

		if !isAuthenticated(r, s.auth) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isAuthenticated(r *http.Request, auth *authService) bool {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return false
	}

	_, ok := auth.verifySessionValue(cookie.Value)
	return ok
}
