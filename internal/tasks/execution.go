package tasks

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/shaiso/permitflow/internal/client"
	"github.com/shaiso/permitflow/internal/domain"
	"github.com/shaiso/permitflow/internal/phase"
	"github.com/shaiso/permitflow/internal/worker"
)

// Значения актива-разрешения.
const (
	assetTypePermit   = "PERMIT"
	assetStatusActive = "ACTIVE"
	assetOrigin       = "CASEDATA"
)

// CheckCardExists сообщает, выдан ли уже номер разрешения.
func (h *Handlers) CheckCardExists(ctx context.Context, task *domain.Task) (*worker.Result, error) {
	errand, _, err := h.load(ctx, task)
	if err != nil {
		return nil, err
	}
	exists := phase.Read(errand.ExtraParameters).HasPermitNumber()
	return worker.NewResult(OutCardExists, exists), nil
}

// OrderCard ставит заказ карты в очереди RPA по типу дела.
//
// Reference элемента детерминирован (очередь + номер дела), поэтому
// повторная постановка отклоняется очередью как дубликат и поглощается.
// После постановки добавляется статус CARD_ORDERED.
func (h *Handlers) OrderCard(ctx context.Context, task *domain.Task) (*worker.Result, error) {
	if h.deps.RPA == nil {
		return nil, fmt.Errorf("%w: rpa", ErrMissingDependency)
	}

	errand, ref, err := h.load(ctx, task)
	if err != nil {
		return nil, err
	}
	if errand.CaseType == "" {
		return nil, domain.NewProblem(domain.KindNoCaseType, "errand %s", errand.ErrandNumber)
	}
	queues, ok := h.deps.Queues[errand.CaseType]
	if !ok || len(queues) == 0 {
		return nil, domain.NewProblem(domain.KindUnsupportedCaseType, "%s", errand.CaseType)
	}

	number := errandNumber(errand)
	logger := h.logger(ctx)
	for _, queue := range queues {
		item := client.QueueItem{
			Name:      queue,
			Reference: QueueReference(queue, number),
			Priority:  "Normal",
			SpecificContent: map[string]any{
				"CaseNumber":     number,
				"CaseId":         ref.ID,
				"MunicipalityId": errand.MunicipalityID,
			},
		}
		if err := h.deps.Guard.Absorb(ctx, h.deps.RPA.AddQueueItem(ctx, item)); err != nil {
			return nil, fmt.Errorf("add queue item to %s: %w", queue, err)
		}
		logger.Info("card ordered", "queue", queue, "reference", item.Reference)
	}

	if errand.HasStatus(domain.StatusCardOrdered) {
		return nil, nil
	}
	return nil, h.appendStatus(ctx, ref, errand, domain.StatusCardOrdered, "")
}

// QueueReference — детерминированная ссылка элемента очереди RPA.
func QueueReference(queue, errandNumber string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("permitflow:"+queue+":"+errandNumber)).String()
}

// CreateAsset регистрирует разрешение как актив заявителя.
// Повтор (409 ALREADY_EXISTS) считается успехом.
func (h *Handlers) CreateAsset(ctx context.Context, task *domain.Task) (*worker.Result, error) {
	if h.deps.Assets == nil {
		return nil, fmt.Errorf("%w: party assets", ErrMissingDependency)
	}

	errand, _, err := h.load(ctx, task)
	if err != nil {
		return nil, err
	}
	extras := phase.Read(errand.ExtraParameters)
	if !extras.HasPermitNumber() {
		return nil, domain.NewProblem(domain.KindNoPermitNumber, "errand %s", errand.ErrandNumber)
	}
	applicant, err := h.applicant(errand)
	if err != nil {
		return nil, err
	}

	asset := client.Asset{
		AssetID:          *extras.PermitNumber,
		Origin:           assetOrigin,
		PartyID:          applicant.PersonID,
		CaseReferenceIDs: []string{errandNumber(errand)},
		Type:             assetTypePermit,
		Issued:           h.deps.Now().UTC().Format("2006-01-02"),
		ValidTo:          deref(extras.PermitExpiration),
		Status:           assetStatusActive,
		Description:      errand.CaseType,
	}
	if extras.PermitStatus != nil {
		asset.AdditionalParams = map[string]string{"permitStatus": *extras.PermitStatus}
	}

	if err := h.deps.Guard.Absorb(ctx, h.deps.Assets.CreateAsset(ctx, errand.MunicipalityID, asset)); err != nil {
		return nil, fmt.Errorf("create asset %s: %w", asset.AssetID, err)
	}
	h.logger(ctx).Info("permit asset registered", "asset_id", asset.AssetID)
	return nil, nil
}
