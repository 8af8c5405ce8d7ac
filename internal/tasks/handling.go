package tasks

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shaiso/permitflow/internal/client"
	"github.com/shaiso/permitflow/internal/domain"
	"github.com/shaiso/permitflow/internal/journal"
	"github.com/shaiso/permitflow/internal/texts"
	"github.com/shaiso/permitflow/internal/worker"
)

// errUndelivered — письмо не ушло ни одним каналом.
var errUndelivered = errors.New("decision message undelivered")

// byPostRef — префикс записи журнала, когда решение ушло почтой.
const byPostRef = "by-post:"

// Классификация служебных дел в support-management.
const (
	supportCategory     = "PARKING_PERMIT"
	supportTypeByPost   = "DECISION_BY_POST"
	supportTypeCard     = "CARD_PRODUCTION"
	supportPriority     = "MEDIUM"
	supportTagCaseID    = "caseId"
	supportTagErrandNum = "errandNumber"
	pdfContentType      = "application/pdf"
)

// DecisionHandling доставляет окончательное решение гражданину.
//
// PDF решения уходит в цифровой почтовый ящик, при ошибке в личный кабинет.
// Если оба канала отказали, создаётся support-дело на отправку почтой.
// Для одобренного решения создаётся support-дело на изготовление карты.
// Каждый эффект выполняется не более одного раза на дело (журнал эффектов).
func (h *Handlers) DecisionHandling(ctx context.Context, task *domain.Task) (*worker.Result, error) {
	switch {
	case h.deps.Messaging == nil:
		return nil, fmt.Errorf("%w: messaging", ErrMissingDependency)
	case h.deps.Templating == nil:
		return nil, fmt.Errorf("%w: templating", ErrMissingDependency)
	case h.deps.Support == nil:
		return nil, fmt.Errorf("%w: support management", ErrMissingDependency)
	}

	errand, ref, err := h.load(ctx, task)
	if err != nil {
		return nil, err
	}
	final := errand.FinalDecision()
	if final == nil {
		return nil, domain.NewProblem(domain.KindNoFinalDecision, "errand %s", errand.ErrandNumber)
	}
	applicant, err := h.applicant(errand)
	if err != nil {
		return nil, err
	}

	h.extendLock(ctx, task)

	data := texts.NewData(errand, h.deps.Now())
	doc, err := h.renderDecision(ctx, errand, data)
	if err != nil {
		return nil, err
	}

	logger := h.logger(ctx)
	number := errandNumber(errand)

	// Письмо считается доставленным и тогда, когда создано дело на отправку
	// почтой: повторная доставка задачи не шлёт его цифровым каналом.
	messageRef, err := h.deps.Guard.Once(ctx, effectKey(number, task, effectDecisionMessage), "messaging", func(ctx context.Context) (string, error) {
		fallbackKey := effectKey(number, task, effectFallbackCase)
		supportID, posted, err := h.deps.Guard.Recorded(ctx, fallbackKey)
		if err != nil {
			return "", err
		}
		if posted {
			return byPostRef + supportID, nil
		}

		id, err := h.sendDecision(ctx, errand, applicant, data, doc)
		if !errors.Is(err, errUndelivered) {
			return id, err
		}
		logger.Warn("decision message undelivered, creating support errand", "error", err)
		supportID, err = h.deps.Guard.Once(ctx, fallbackKey, "support-management", func(ctx context.Context) (string, error) {
			return h.createSupportErrand(ctx, ref, errand, data, supportTypeByPost, texts.FallbackTitle, texts.FallbackDescription, &doc)
		})
		if err != nil {
			return "", fmt.Errorf("create fallback support errand: %w", err)
		}
		return byPostRef + supportID, nil
	})
	if err != nil {
		return nil, err
	}
	messageID := messageRef
	if strings.HasPrefix(messageRef, byPostRef) {
		messageID = ""
	} else {
		logger.Info("decision message sent", "message_id", messageID)
	}

	if data.Approved {
		if _, err := h.deps.Guard.Once(ctx, effectKey(number, task, effectCardCase), "support-management", func(ctx context.Context) (string, error) {
			return h.createSupportErrand(ctx, ref, errand, data, supportTypeCard, texts.CardTitle, texts.CardDescription, nil)
		}); err != nil {
			return nil, fmt.Errorf("create card support errand: %w", err)
		}
	}

	if messageID == "" {
		return nil, nil
	}
	return worker.NewResult(OutMessageID, messageID), nil
}

// extendLock продлевает блокировку перед долгой обработкой. Ошибка
// не фатальна: в худшем случае задача придёт повторно.
func (h *Handlers) extendLock(ctx context.Context, task *domain.Task) {
	if h.deps.Engine == nil || h.deps.LockExtension <= 0 {
		return
	}
	if err := h.deps.Engine.ExtendLock(ctx, task.ID, h.deps.LockExtension); err != nil {
		h.logger(ctx).Warn("failed to extend task lock", "error", err)
	}
}

// decisionDocument — отрендеренный PDF решения.
type decisionDocument struct {
	Filename string
	Content  string
}

func (d decisionDocument) attachment() client.MessageAttachment {
	return client.MessageAttachment{Name: d.Filename, ContentType: pdfContentType, Content: d.Content}
}

func (h *Handlers) renderDecision(ctx context.Context, errand *domain.Errand, data texts.Data) (decisionDocument, error) {
	identifier, err := h.deps.Texts.Render(texts.DecisionTemplate, data)
	if err != nil {
		return decisionDocument{}, err
	}
	filename, err := h.deps.Texts.Render(texts.DecisionFilename, data)
	if err != nil {
		return decisionDocument{}, err
	}

	content, err := h.deps.Templating.RenderPDF(ctx, errand.MunicipalityID, client.RenderRequest{
		Identifier: identifier,
		Parameters: map[string]any{
			"errandNumber":  errand.ErrandNumber,
			"caseType":      errand.CaseType,
			"applicantName": data.ApplicantName,
			"approved":      data.Approved,
			"description":   data.Decision.Description,
		},
	})
	if err != nil {
		return decisionDocument{}, fmt.Errorf("render decision pdf %s: %w", identifier, err)
	}
	return decisionDocument{Filename: filename, Content: content}, nil
}

func (h *Handlers) sendDecision(ctx context.Context, errand *domain.Errand, applicant *domain.Stakeholder, data texts.Data, doc decisionDocument) (string, error) {
	subject, err := h.deps.Texts.Render(texts.MessageSubject, data)
	if err != nil {
		return "", err
	}
	body, err := h.deps.Texts.Render(texts.MessageBody, data)
	if err != nil {
		return "", err
	}

	req := client.MessageRequest{
		PartyID:     applicant.PersonID,
		ExternalRef: errand.ErrandNumber,
		Subject:     subject,
		Body:        body,
		Attachments: []client.MessageAttachment{doc.attachment()},
	}

	id, mailErr := h.deps.Messaging.SendDigitalMail(ctx, errand.MunicipalityID, req)
	if mailErr == nil {
		return id, nil
	}
	h.logger(ctx).Warn("digital mail failed, trying web message", "error", mailErr)

	id, webErr := h.deps.Messaging.SendWebMessage(ctx, errand.MunicipalityID, req)
	if webErr == nil {
		return id, nil
	}
	return "", fmt.Errorf("%w: %w", errUndelivered, errors.Join(mailErr, webErr))
}

func (h *Handlers) createSupportErrand(ctx context.Context, ref client.ErrandRef, errand *domain.Errand, data texts.Data, kind, titleTmpl, descTmpl string, doc *decisionDocument) (string, error) {
	title, err := h.deps.Texts.Render(titleTmpl, data)
	if err != nil {
		return "", err
	}
	description, err := h.deps.Texts.Render(descTmpl, data)
	if err != nil {
		return "", err
	}

	se := client.SupportErrand{
		Title:          title,
		Description:    description,
		Priority:       supportPriority,
		Classification: client.SupportCategory{Category: supportCategory, Type: kind},
		ExternalTags: []client.SupportTag{
			{Key: supportTagCaseID, Value: strconv.FormatInt(ref.ID, 10)},
			{Key: supportTagErrandNum, Value: errand.ErrandNumber},
		},
		Parameters: map[string]string{"caseType": errand.CaseType},
	}
	if doc != nil {
		se.Attachments = []client.MessageAttachment{doc.attachment()}
	}

	id, err := h.deps.Support.CreateErrand(ctx, errand.MunicipalityID, h.deps.SupportNamespace, se)
	if err != nil {
		return "", err
	}
	h.logger(ctx).Info("support errand created", "support_type", kind, "support_errand_id", id)
	return id, nil
}

// errandNumber — ключ дела в журнале: номер, иначе числовой id.
func errandNumber(errand *domain.Errand) string {
	if errand.ErrandNumber != "" {
		return errand.ErrandNumber
	}
	return strconv.FormatInt(errand.ID, 10)
}

func effectKey(number string, task *domain.Task, effect string) journal.Key {
	return journal.Key{ErrandNumber: number, Task: task.TopicName, Effect: effect}
}
