package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"dunning/types"
)

// CaseRepo persists case aggregates. Save rewrites the whole aggregate in
// one transaction, which is what makes a state transition atomic: state,
// nested records and flags commit together or not at all.
type CaseRepo struct {
	db *gorm.DB
}

func NewCaseRepo(db *gorm.DB) *CaseRepo {
	return &CaseRepo{db: db}
}

// AutoMigrate creates or updates the schema.
func (r *CaseRepo) AutoMigrate() error {
	return r.db.AutoMigrate(
		&CaseModel{}, &ObligationModel{}, &PromiseModel{}, &DisputeModel{},
		&PlanModel{}, &InstalmentModel{}, &FlagModel{}, &TouchModel{},
		&PaymentModel{}, &TenantConfigModel{},
	)
}

func (r *CaseRepo) Create(ctx context.Context, c *types.Case) error {
	return r.save(ctx, c, true)
}

func (r *CaseRepo) Save(ctx context.Context, c *types.Case) error {
	return r.save(ctx, c, false)
}

func (r *CaseRepo) save(ctx context.Context, c *types.Case, isNew bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := caseToRow(c)
		if isNew {
			if err := tx.Create(row).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Save(row).Error; err != nil {
				return err
			}
		}

		// Children: delete and reinsert keeps the aggregate write simple
		// and still atomic inside the transaction.
		for _, m := range []any{&ObligationModel{}, &PromiseModel{}, &DisputeModel{}, &FlagModel{}, &TouchModel{}} {
			if err := tx.Where("case_id = ?", c.CaseID).Delete(m).Error; err != nil {
				return err
			}
		}
		if c.Plan != nil {
			if err := tx.Where("plan_id = ?", c.Plan.ID).Delete(&InstalmentModel{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("case_id = ?", c.CaseID).Delete(&PlanModel{}).Error; err != nil {
			return err
		}

		if rows := obligationsToRows(c); len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		if rows := promisesToRows(c); len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		if rows := disputesToRows(c); len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		if rows := flagsToRows(c); len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		if rows := touchesToRows(c); len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		if c.Plan != nil {
			planRow, instRows := planToRows(c)
			if err := tx.Create(planRow).Error; err != nil {
				return err
			}
			if len(instRows) > 0 {
				if err := tx.Create(&instRows).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (r *CaseRepo) Get(ctx context.Context, caseID string) (*types.Case, error) {
	var row CaseModel
	if err := r.db.WithContext(ctx).Where("case_id = ?", caseID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("case %s not found", caseID)
		}
		return nil, err
	}
	return r.assemble(ctx, &row)
}

// ListByTenant returns the tenant's cases, optionally filtered by state.
func (r *CaseRepo) ListByTenant(ctx context.Context, tenantID string, states ...types.CaseState) ([]*types.Case, error) {
	tx := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if len(states) > 0 {
		vals := make([]string, len(states))
		for i, s := range states {
			vals[i] = string(s)
		}
		tx = tx.Where("state IN ?", vals)
	}
	var rows []CaseModel
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	cases := make([]*types.Case, 0, len(rows))
	for i := range rows {
		c, err := r.assemble(ctx, &rows[i])
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	return cases, nil
}

func (r *CaseRepo) GetTenantConfig(ctx context.Context, tenantID string) (*types.TenantConfig, error) {
	var row TenantConfigModel
	if err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &types.ConfigurationError{TenantID: tenantID, Field: "tenant_config"}
		}
		return nil, err
	}
	cfg := types.TenantConfig{
		TenantID:             row.TenantID,
		MinimumThreshold:     row.MinimumThreshold,
		GraceDays:            row.GraceDays,
		StatuteCountry:       row.StatuteCountry,
		MaxTouchesTotal:      row.MaxTouchesTotal,
		MaxTouchesPerChannel: row.MaxTouchesPerChannel,
		TouchPeriodDays:      row.TouchPeriodDays,
		LegalThreshold:       row.LegalThreshold,
		WriteOffThreshold:    row.WriteOffThreshold,
		ConfidenceThreshold:  row.ConfidenceThreshold,
		StatuteYears:         row.StatuteYears,
	}
	return &cfg, nil
}

func (r *CaseRepo) SaveTenantConfig(ctx context.Context, cfg *types.TenantConfig) error {
	row := TenantConfigModel{
		TenantID:             cfg.TenantID,
		MinimumThreshold:     cfg.MinimumThreshold,
		GraceDays:            cfg.GraceDays,
		StatuteCountry:       cfg.StatuteCountry,
		MaxTouchesTotal:      cfg.MaxTouchesTotal,
		MaxTouchesPerChannel: cfg.MaxTouchesPerChannel,
		TouchPeriodDays:      cfg.TouchPeriodDays,
		LegalThreshold:       cfg.LegalThreshold,
		WriteOffThreshold:    cfg.WriteOffThreshold,
		ConfidenceThreshold:  cfg.ConfidenceThreshold,
		StatuteYears:         cfg.StatuteYears,
	}
	return r.db.WithContext(ctx).Save(&row).Error
}

// ListTenantIDs feeds the cycle scheduler.
func (r *CaseRepo) ListTenantIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&TenantConfigModel{}).Select("tenant_id").Find(&ids).Error
	return ids, err
}

// RecordPayment lands one payment from the payments collaborator.
func (r *CaseRepo) RecordPayment(ctx context.Context, caseID string, p types.Payment) error {
	return r.db.WithContext(ctx).Create(&PaymentModel{
		CaseID:     caseID,
		Amount:     p.Amount,
		ReceivedAt: p.ReceivedAt,
	}).Error
}

// PaymentsSince returns the case's payments received after the given time,
// ordered by receipt.
func (r *CaseRepo) PaymentsSince(ctx context.Context, caseID string, since time.Time) ([]types.Payment, error) {
	var rows []PaymentModel
	err := r.db.WithContext(ctx).
		Where("case_id = ? AND received_at > ?", caseID, since).
		Order("received_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	payments := make([]types.Payment, len(rows))
	for i, row := range rows {
		payments[i] = types.Payment{Amount: row.Amount, ReceivedAt: row.ReceivedAt}
	}
	return payments, nil
}

func (r *CaseRepo) assemble(ctx context.Context, row *CaseModel) (*types.Case, error) {
	c := rowToCase(row)

	var obligations []ObligationModel
	if err := r.db.WithContext(ctx).Where("case_id = ?", c.CaseID).Order("due_date asc").Find(&obligations).Error; err != nil {
		return nil, err
	}
	for _, o := range obligations {
		c.Obligations = append(c.Obligations, types.Obligation{
			InvoiceNumber:     o.InvoiceNumber,
			OriginalAmount:    o.OriginalAmount,
			OutstandingAmount: o.OutstandingAmount,
			DueDate:           o.DueDate,
			Status:            o.Status,
		})
	}

	var promises []PromiseModel
	if err := r.db.WithContext(ctx).Where("case_id = ?", c.CaseID).Order("created_at asc").Find(&promises).Error; err != nil {
		return nil, err
	}
	for _, p := range promises {
		c.Promises = append(c.Promises, types.Promise{
			ID:                  p.ID,
			PromiseDate:         p.PromiseDate,
			PromiseAmount:       p.PromiseAmount,
			BaselineOutstanding: p.BaselineOutstanding,
			CreatedAt:           p.CreatedAt,
			Outcome:             types.PromiseOutcome(p.Outcome),
		})
	}

	var disputes []DisputeModel
	if err := r.db.WithContext(ctx).Where("case_id = ?", c.CaseID).Order("created_at asc").Find(&disputes).Error; err != nil {
		return nil, err
	}
	for _, d := range disputes {
		c.Disputes = append(c.Disputes, types.Dispute{
			ID:         d.ID,
			Type:       types.DisputeType(d.DisputeType),
			ReasonText: d.ReasonText,
			Status:     types.DisputeStatus(d.Status),
			CreatedAt:  d.CreatedAt,
			ResolvedAt: d.ResolvedAt,
		})
	}

	var flags []FlagModel
	if err := r.db.WithContext(ctx).Where("case_id = ?", c.CaseID).Order("triggered_at asc").Find(&flags).Error; err != nil {
		return nil, err
	}
	for _, f := range flags {
		c.Flags = append(c.Flags, types.Flag{
			Type:        types.FlagType(f.FlagType),
			ReasonCode:  f.ReasonCode,
			TriggeredAt: f.TriggeredAt,
		})
	}

	var touches []TouchModel
	if err := r.db.WithContext(ctx).Where("case_id = ?", c.CaseID).Order("sent_at asc").Find(&touches).Error; err != nil {
		return nil, err
	}
	for _, t := range touches {
		c.Touches = append(c.Touches, types.Touch{
			Channel:     t.Channel,
			SentAt:      t.SentAt,
			SenderLevel: t.SenderLevel,
			Tone:        t.Tone,
			Responded:   t.Responded,
		})
	}

	var planRow PlanModel
	err := r.db.WithContext(ctx).Where("case_id = ?", c.CaseID).First(&planRow).Error
	if err == nil {
		plan := &types.Plan{
			ID:        planRow.ID,
			Status:    types.PlanStatus(planRow.Status),
			CreatedAt: planRow.CreatedAt,
		}
		var instRows []InstalmentModel
		if err := r.db.WithContext(ctx).Where("plan_id = ?", planRow.ID).Order("seq asc").Find(&instRows).Error; err != nil {
			return nil, err
		}
		for _, inst := range instRows {
			plan.Instalments = append(plan.Instalments, types.Instalment{
				DueDate:   inst.DueDate,
				Amount:    inst.Amount,
				PaidSoFar: inst.PaidSoFar,
				Status:    types.InstalmentStatus(inst.Status),
				PaidAt:    inst.PaidAt,
			})
		}
		c.Plan = plan
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return c, nil
}

func caseToRow(c *types.Case) *CaseModel {
	return &CaseModel{
		CaseID:              c.CaseID,
		PartyID:             c.PartyID,
		TenantID:            c.TenantID,
		State:               string(c.State),
		StateEnteredAt:      c.StateEnteredAt,
		ManualHold:          c.ManualHold,
		TouchCount:          c.TouchCount,
		LastTouchAt:         c.LastTouchAt,
		LastTouchChannel:    c.LastTouchChannel,
		LastSenderLevel:     c.LastSenderLevel,
		LastTone:            c.LastTone,
		BrokenPromisesCount: c.BrokenPromisesCount,
		ActiveDispute:       c.ActiveDispute,
		HardshipIndicated:   c.HardshipIndicated,
		HasValidEmail:       c.HasValidEmail,
		LastResponseIntent:  string(c.LastResponseIntent),
		Notes:               c.Notes,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}
}

func rowToCase(row *CaseModel) *types.Case {
	return &types.Case{
		CaseID:              row.CaseID,
		PartyID:             row.PartyID,
		TenantID:            row.TenantID,
		State:               types.CaseState(row.State),
		StateEnteredAt:      row.StateEnteredAt,
		ManualHold:          row.ManualHold,
		TouchCount:          row.TouchCount,
		LastTouchAt:         row.LastTouchAt,
		LastTouchChannel:    row.LastTouchChannel,
		LastSenderLevel:     row.LastSenderLevel,
		LastTone:            row.LastTone,
		BrokenPromisesCount: row.BrokenPromisesCount,
		ActiveDispute:       row.ActiveDispute,
		HardshipIndicated:   row.HardshipIndicated,
		HasValidEmail:       row.HasValidEmail,
		LastResponseIntent:  types.ResponseIntent(row.LastResponseIntent),
		Notes:               row.Notes,
		CreatedAt:           row.CreatedAt,
		UpdatedAt:           row.UpdatedAt,
	}
}

func obligationsToRows(c *types.Case) []ObligationModel {
	rows := make([]ObligationModel, 0, len(c.Obligations))
	for _, o := range c.Obligations {
		rows = append(rows, ObligationModel{
			CaseID:            c.CaseID,
			InvoiceNumber:     o.InvoiceNumber,
			OriginalAmount:    o.OriginalAmount,
			OutstandingAmount: o.OutstandingAmount,
			DueDate:           o.DueDate,
			Status:            o.Status,
		})
	}
	return rows
}

func promisesToRows(c *types.Case) []PromiseModel {
	rows := make([]PromiseModel, 0, len(c.Promises))
	for _, p := range c.Promises {
		rows = append(rows, PromiseModel{
			ID:                  p.ID,
			CaseID:              c.CaseID,
			PromiseDate:         p.PromiseDate,
			PromiseAmount:       p.PromiseAmount,
			BaselineOutstanding: p.BaselineOutstanding,
			CreatedAt:           p.CreatedAt,
			Outcome:             string(p.Outcome),
		})
	}
	return rows
}

func disputesToRows(c *types.Case) []DisputeModel {
	rows := make([]DisputeModel, 0, len(c.Disputes))
	for _, d := range c.Disputes {
		rows = append(rows, DisputeModel{
			ID:          d.ID,
			CaseID:      c.CaseID,
			DisputeType: string(d.Type),
			ReasonText:  d.ReasonText,
			Status:      string(d.Status),
			CreatedAt:   d.CreatedAt,
			ResolvedAt:  d.ResolvedAt,
		})
	}
	return rows
}

func flagsToRows(c *types.Case) []FlagModel {
	rows := make([]FlagModel, 0, len(c.Flags))
	for _, f := range c.Flags {
		rows = append(rows, FlagModel{
			CaseID:      c.CaseID,
			FlagType:    string(f.Type),
			ReasonCode:  f.ReasonCode,
			TriggeredAt: f.TriggeredAt,
		})
	}
	return rows
}

func touchesToRows(c *types.Case) []TouchModel {
	rows := make([]TouchModel, 0, len(c.Touches))
	for _, t := range c.Touches {
		rows = append(rows, TouchModel{
			CaseID:      c.CaseID,
			Channel:     t.Channel,
			SentAt:      t.SentAt,
			SenderLevel: t.SenderLevel,
			Tone:        t.Tone,
			Responded:   t.Responded,
		})
	}
	return rows
}

func planToRows(c *types.Case) (*PlanModel, []InstalmentModel) {
	planRow := &PlanModel{
		ID:        c.Plan.ID,
		CaseID:    c.CaseID,
		Status:    string(c.Plan.Status),
		CreatedAt: c.Plan.CreatedAt,
	}
	instRows := make([]InstalmentModel, 0, len(c.Plan.Instalments))
	for i, inst := range c.Plan.Instalments {
		instRows = append(instRows, InstalmentModel{
			PlanID:    c.Plan.ID,
			Seq:       i,
			DueDate:   inst.DueDate,
			Amount:    inst.Amount,
			PaidSoFar: inst.PaidSoFar,
			Status:    string(inst.Status),
			PaidAt:    inst.PaidAt,
		})
	}
	return planRow, instRows
}
