package businessflow

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openmkt/campaignkit/models"
	"github.com/openmkt/campaignkit/utils"
)

// In-memory repository doubles. They satisfy the repository interfaces with
// plain maps so flows can be exercised without a database.

type fakeCustomerRepo struct {
	customers map[uint]*models.Customer
	nextID    uint
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{customers: map[uint]*models.Customer{}, nextID: 1}
}

func (r *fakeCustomerRepo) addCustomer(customer *models.Customer) *models.Customer {
	if customer.ID == 0 {
		customer.ID = r.nextID
		r.nextID++
	}
	if customer.UUID == uuid.Nil {
		customer.UUID = uuid.New()
	}
	if customer.IsActive == nil {
		customer.IsActive = utils.ToPtr(true)
	}
	r.customers[customer.ID] = customer
	return customer
}

func (r *fakeCustomerRepo) ByID(ctx context.Context, id uint) (*models.Customer, error) {
	if c, ok := r.customers[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeCustomerRepo) ByFilter(ctx context.Context, filter models.CustomerFilter, orderBy string, limit, offset int) ([]*models.Customer, error) {
	return nil, nil
}

func (r *fakeCustomerRepo) Save(ctx context.Context, entity *models.Customer) error {
	r.addCustomer(entity)
	return nil
}

func (r *fakeCustomerRepo) SaveBatch(ctx context.Context, entities []*models.Customer) error {
	for _, e := range entities {
		r.addCustomer(e)
	}
	return nil
}

func (r *fakeCustomerRepo) Count(ctx context.Context, filter models.CustomerFilter) (int64, error) {
	return int64(len(r.customers)), nil
}

func (r *fakeCustomerRepo) Exists(ctx context.Context, filter models.CustomerFilter) (bool, error) {
	return len(r.customers) > 0, nil
}

func (r *fakeCustomerRepo) ByEmail(ctx context.Context, email string) (*models.Customer, error) {
	for _, c := range r.customers {
		if strings.EqualFold(c.Email, email) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeCustomerRepo) ByUUID(ctx context.Context, id string) (*models.Customer, error) {
	for _, c := range r.customers {
		if c.UUID.String() == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeCustomerRepo) UpdateLastLogin(ctx context.Context, customerID uint, at time.Time) error {
	if c, ok := r.customers[customerID]; ok {
		c.LastLoginAt = &at
	}
	return nil
}

type fakeCampaignRepo struct {
	campaigns map[uint]*models.Campaign
	nextID    uint
}

func newFakeCampaignRepo() *fakeCampaignRepo {
	return &fakeCampaignRepo{campaigns: map[uint]*models.Campaign{}, nextID: 1}
}

func (r *fakeCampaignRepo) addCampaign(campaign *models.Campaign) *models.Campaign {
	if campaign.ID == 0 {
		campaign.ID = r.nextID
		r.nextID++
	}
	if campaign.UUID == uuid.Nil {
		campaign.UUID = uuid.New()
	}
	if campaign.Status == "" {
		campaign.Status = models.CampaignStatusDraft
	}
	r.campaigns[campaign.ID] = campaign
	return campaign
}

func (r *fakeCampaignRepo) ByID(ctx context.Context, id uint) (*models.Campaign, error) {
	if c, ok := r.campaigns[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeCampaignRepo) matches(c *models.Campaign, filter models.CampaignFilter) bool {
	if filter.ID != nil && c.ID != *filter.ID {
		return false
	}
	if filter.UUID != nil && c.UUID != *filter.UUID {
		return false
	}
	if filter.CustomerID != nil && c.CustomerID != *filter.CustomerID {
		return false
	}
	if filter.Status != nil && c.Status != *filter.Status {
		return false
	}
	if filter.Name != nil && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(*filter.Name)) {
		return false
	}
	return true
}

func (r *fakeCampaignRepo) ByFilter(ctx context.Context, filter models.CampaignFilter, orderBy string, limit, offset int) ([]*models.Campaign, error) {
	var out []*models.Campaign
	for _, c := range r.campaigns {
		if r.matches(c, filter) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset > 0 {
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeCampaignRepo) Save(ctx context.Context, entity *models.Campaign) error {
	cp := *entity
	stored := r.addCampaign(&cp)
	entity.ID = stored.ID
	entity.UUID = stored.UUID
	return nil
}

func (r *fakeCampaignRepo) SaveBatch(ctx context.Context, entities []*models.Campaign) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeCampaignRepo) Count(ctx context.Context, filter models.CampaignFilter) (int64, error) {
	var count int64
	for _, c := range r.campaigns {
		if r.matches(c, filter) {
			count++
		}
	}
	return count, nil
}

func (r *fakeCampaignRepo) Exists(ctx context.Context, filter models.CampaignFilter) (bool, error) {
	count, _ := r.Count(ctx, filter)
	return count > 0, nil
}

func (r *fakeCampaignRepo) ByUUID(ctx context.Context, id string) (*models.Campaign, error) {
	parsed, err := utils.ParseUUID(id)
	if err != nil {
		return nil, err
	}
	for _, c := range r.campaigns {
		if c.UUID == parsed {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeCampaignRepo) ByIDWithRelations(ctx context.Context, id uint) (*models.Campaign, error) {
	return r.ByID(ctx, id)
}

func (r *fakeCampaignRepo) ByCustomerID(ctx context.Context, customerID uint, limit, offset int) ([]*models.Campaign, error) {
	return r.ByFilter(ctx, models.CampaignFilter{CustomerID: &customerID}, "", limit, offset)
}

func (r *fakeCampaignRepo) Update(ctx context.Context, campaign models.Campaign) error {
	if _, ok := r.campaigns[campaign.ID]; !ok {
		return fmt.Errorf("campaign %d not found", campaign.ID)
	}
	cp := campaign
	r.campaigns[campaign.ID] = &cp
	return nil
}

func (r *fakeCampaignRepo) UpdateStatus(ctx context.Context, id uint, status models.CampaignStatus) error {
	c, ok := r.campaigns[id]
	if !ok {
		return fmt.Errorf("campaign %d not found", id)
	}
	c.Status = status
	return nil
}

func (r *fakeCampaignRepo) UpdateAnalysisSteps(ctx context.Context, id uint, steps models.AnalysisStepList) error {
	c, ok := r.campaigns[id]
	if !ok {
		return fmt.Errorf("campaign %d not found", id)
	}
	c.AnalysisSteps = steps
	return nil
}

func (r *fakeCampaignRepo) Delete(ctx context.Context, id uint) error {
	delete(r.campaigns, id)
	return nil
}

type fakeContactRepo struct {
	contacts map[uint]*models.Contact
	nextID   uint
}

func newFakeContactRepo() *fakeContactRepo {
	return &fakeContactRepo{contacts: map[uint]*models.Contact{}, nextID: 1}
}

func (r *fakeContactRepo) ByID(ctx context.Context, id uint) (*models.Contact, error) {
	if c, ok := r.contacts[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeContactRepo) ByFilter(ctx context.Context, filter models.ContactFilter, orderBy string, limit, offset int) ([]*models.Contact, error) {
	var out []*models.Contact
	for _, c := range r.contacts {
		if filter.CustomerID != nil && c.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.Email != nil && c.Email != *filter.Email {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeContactRepo) Save(ctx context.Context, entity *models.Contact) error {
	if entity.ID == 0 {
		entity.ID = r.nextID
		r.nextID++
	}
	cp := *entity
	r.contacts[entity.ID] = &cp
	return nil
}

func (r *fakeContactRepo) SaveBatch(ctx context.Context, entities []*models.Contact) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeContactRepo) Count(ctx context.Context, filter models.ContactFilter) (int64, error) {
	out, _ := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(out)), nil
}

func (r *fakeContactRepo) Exists(ctx context.Context, filter models.ContactFilter) (bool, error) {
	count, _ := r.Count(ctx, filter)
	return count > 0, nil
}

func (r *fakeContactRepo) ByOwnerAndEmail(ctx context.Context, customerID uint, email string) (*models.Contact, error) {
	for _, c := range r.contacts {
		if c.CustomerID == customerID && c.Email == email {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeContactRepo) UpsertByOwnerEmail(ctx context.Context, contact *models.Contact) error {
	for _, existing := range r.contacts {
		if existing.CustomerID == contact.CustomerID && existing.Email == contact.Email {
			existing.FirstName = contact.FirstName
			existing.LastName = contact.LastName
			existing.Attributes = contact.Attributes
			contact.ID = existing.ID
			return nil
		}
	}
	return r.Save(ctx, contact)
}

type fakeRecipientRepo struct {
	recipients map[uint]*models.CampaignRecipient
	contacts   *fakeContactRepo
	rendered   *fakeRenderedEmailRepo
	nextID     uint
}

func newFakeRecipientRepo(contacts *fakeContactRepo, rendered *fakeRenderedEmailRepo) *fakeRecipientRepo {
	return &fakeRecipientRepo{
		recipients: map[uint]*models.CampaignRecipient{},
		contacts:   contacts,
		rendered:   rendered,
		nextID:     1,
	}
}

func (r *fakeRecipientRepo) ByID(ctx context.Context, id uint) (*models.CampaignRecipient, error) {
	if rec, ok := r.recipients[id]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeRecipientRepo) matches(rec *models.CampaignRecipient, filter models.CampaignRecipientFilter) bool {
	if filter.ID != nil && rec.ID != *filter.ID {
		return false
	}
	if filter.CampaignID != nil && rec.CampaignID != *filter.CampaignID {
		return false
	}
	if filter.ContactID != nil && rec.ContactID != *filter.ContactID {
		return false
	}
	if filter.Status != nil && rec.Status != *filter.Status {
		return false
	}
	return true
}

func (r *fakeRecipientRepo) ByFilter(ctx context.Context, filter models.CampaignRecipientFilter, orderBy string, limit, offset int) ([]*models.CampaignRecipient, error) {
	var out []*models.CampaignRecipient
	for _, rec := range r.recipients {
		if r.matches(rec, filter) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRecipientRepo) Save(ctx context.Context, entity *models.CampaignRecipient) error {
	if entity.ID == 0 {
		entity.ID = r.nextID
		r.nextID++
	}
	cp := *entity
	cp.Contact = nil
	cp.RenderedEmail = nil
	r.recipients[entity.ID] = &cp
	return nil
}

func (r *fakeRecipientRepo) SaveBatch(ctx context.Context, entities []*models.CampaignRecipient) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeRecipientRepo) Count(ctx context.Context, filter models.CampaignRecipientFilter) (int64, error) {
	out, _ := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(out)), nil
}

func (r *fakeRecipientRepo) Exists(ctx context.Context, filter models.CampaignRecipientFilter) (bool, error) {
	count, _ := r.Count(ctx, filter)
	return count > 0, nil
}

func (r *fakeRecipientRepo) UpsertByCampaignContact(ctx context.Context, recipient *models.CampaignRecipient) error {
	for _, existing := range r.recipients {
		if existing.CampaignID == recipient.CampaignID && existing.ContactID == recipient.ContactID {
			existing.PersonaCode = recipient.PersonaCode
			existing.PersonaDisplayName = recipient.PersonaDisplayName
			existing.Confidence = recipient.Confidence
			existing.Status = recipient.Status
			recipient.ID = existing.ID
			return nil
		}
	}
	return r.Save(ctx, recipient)
}

func (r *fakeRecipientRepo) withDetails(rec models.CampaignRecipient) *models.CampaignRecipient {
	if r.contacts != nil {
		if contact, ok := r.contacts.contacts[rec.ContactID]; ok {
			cp := *contact
			rec.Contact = &cp
		}
	}
	if r.rendered != nil {
		for _, email := range r.rendered.emails {
			if email.CampaignRecipientID == rec.ID {
				cp := *email
				rec.RenderedEmail = &cp
				break
			}
		}
	}
	return &rec
}

func (r *fakeRecipientRepo) ListStagedWithDetails(ctx context.Context, campaignID uint) ([]*models.CampaignRecipient, error) {
	staged := models.RecipientStatusStaged
	shallow, _ := r.ByFilter(ctx, models.CampaignRecipientFilter{CampaignID: &campaignID, Status: &staged}, "", 0, 0)
	out := make([]*models.CampaignRecipient, 0, len(shallow))
	for _, rec := range shallow {
		out = append(out, r.withDetails(*rec))
	}
	return out, nil
}

func (r *fakeRecipientRepo) ListByIDsWithDetails(ctx context.Context, ids []uint) ([]*models.CampaignRecipient, error) {
	out := make([]*models.CampaignRecipient, 0, len(ids))
	for _, id := range ids {
		if rec, ok := r.recipients[id]; ok {
			out = append(out, r.withDetails(*rec))
		}
	}
	return out, nil
}

func (r *fakeRecipientRepo) CountByCampaign(ctx context.Context, campaignID uint) (int64, error) {
	return r.Count(ctx, models.CampaignRecipientFilter{CampaignID: &campaignID})
}

func (r *fakeRecipientRepo) PersonaCounts(ctx context.Context, campaignID uint) ([]models.PersonaCount, error) {
	counts := map[string]int64{}
	for _, rec := range r.recipients {
		if rec.CampaignID != campaignID {
			continue
		}
		code := ""
		if rec.PersonaCode != nil {
			code = *rec.PersonaCode
		}
		counts[code]++
	}
	out := make([]models.PersonaCount, 0, len(counts))
	for code, count := range counts {
		out = append(out, models.PersonaCount{PersonaCode: code, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PersonaCode < out[j].PersonaCode })
	return out, nil
}

func (r *fakeRecipientRepo) UpdateStatusBatch(ctx context.Context, ids []uint, status models.RecipientStatus) error {
	for _, id := range ids {
		if rec, ok := r.recipients[id]; ok {
			rec.Status = status
		}
	}
	return nil
}

type fakeRenderedEmailRepo struct {
	emails map[uint]*models.CampaignRenderedEmail
	nextID uint
}

func newFakeRenderedEmailRepo() *fakeRenderedEmailRepo {
	return &fakeRenderedEmailRepo{emails: map[uint]*models.CampaignRenderedEmail{}, nextID: 1}
}

func (r *fakeRenderedEmailRepo) ByID(ctx context.Context, id uint) (*models.CampaignRenderedEmail, error) {
	if e, ok := r.emails[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeRenderedEmailRepo) ByFilter(ctx context.Context, filter models.CampaignRenderedEmailFilter, orderBy string, limit, offset int) ([]*models.CampaignRenderedEmail, error) {
	var out []*models.CampaignRenderedEmail
	for _, e := range r.emails {
		if filter.CampaignID != nil && e.CampaignID != *filter.CampaignID {
			continue
		}
		if filter.CampaignRecipientID != nil && e.CampaignRecipientID != *filter.CampaignRecipientID {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRenderedEmailRepo) Save(ctx context.Context, entity *models.CampaignRenderedEmail) error {
	if entity.ID == 0 {
		entity.ID = r.nextID
		r.nextID++
	}
	cp := *entity
	r.emails[entity.ID] = &cp
	return nil
}

func (r *fakeRenderedEmailRepo) SaveBatch(ctx context.Context, entities []*models.CampaignRenderedEmail) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeRenderedEmailRepo) Count(ctx context.Context, filter models.CampaignRenderedEmailFilter) (int64, error) {
	out, _ := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(out)), nil
}

func (r *fakeRenderedEmailRepo) Exists(ctx context.Context, filter models.CampaignRenderedEmailFilter) (bool, error) {
	count, _ := r.Count(ctx, filter)
	return count > 0, nil
}

func (r *fakeRenderedEmailRepo) UpsertByRecipient(ctx context.Context, email *models.CampaignRenderedEmail) error {
	for _, existing := range r.emails {
		if existing.CampaignRecipientID == email.CampaignRecipientID {
			existing.Subject = email.Subject
			existing.Preheader = email.Preheader
			existing.HTML = email.HTML
			existing.FromEmail = email.FromEmail
			existing.ToEmail = email.ToEmail
			existing.TemplateID = email.TemplateID
			existing.Rationale = email.Rationale
			email.ID = existing.ID
			return nil
		}
	}
	return r.Save(ctx, email)
}

func (r *fakeRenderedEmailRepo) CountByCampaign(ctx context.Context, campaignID uint) (int64, error) {
	return r.Count(ctx, models.CampaignRenderedEmailFilter{CampaignID: &campaignID})
}

type fakeCompanyProfileRepo struct {
	profiles map[uint]*models.CompanyProfile
}

func newFakeCompanyProfileRepo() *fakeCompanyProfileRepo {
	return &fakeCompanyProfileRepo{profiles: map[uint]*models.CompanyProfile{}}
}

func (r *fakeCompanyProfileRepo) ByID(ctx context.Context, id uint) (*models.CompanyProfile, error) {
	if p, ok := r.profiles[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeCompanyProfileRepo) ByFilter(ctx context.Context, filter models.CompanyProfileFilter, orderBy string, limit, offset int) ([]*models.CompanyProfile, error) {
	return nil, nil
}

func (r *fakeCompanyProfileRepo) Save(ctx context.Context, entity *models.CompanyProfile) error {
	cp := *entity
	r.profiles[entity.ID] = &cp
	return nil
}

func (r *fakeCompanyProfileRepo) SaveBatch(ctx context.Context, entities []*models.CompanyProfile) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeCompanyProfileRepo) Count(ctx context.Context, filter models.CompanyProfileFilter) (int64, error) {
	return int64(len(r.profiles)), nil
}

func (r *fakeCompanyProfileRepo) Exists(ctx context.Context, filter models.CompanyProfileFilter) (bool, error) {
	return len(r.profiles) > 0, nil
}

func (r *fakeCompanyProfileRepo) ByCustomerID(ctx context.Context, customerID uint, limit, offset int) ([]*models.CompanyProfile, error) {
	var out []*models.CompanyProfile
	for _, p := range r.profiles {
		if p.CustomerID == customerID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeFileRepo struct {
	files  map[uint]*models.StoredFile
	nextID uint
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{files: map[uint]*models.StoredFile{}, nextID: 1}
}

func (r *fakeFileRepo) ByID(ctx context.Context, id uint) (*models.StoredFile, error) {
	if f, ok := r.files[id]; ok {
		cp := *f
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeFileRepo) ByFilter(ctx context.Context, filter models.StoredFileFilter, orderBy string, limit, offset int) ([]*models.StoredFile, error) {
	return nil, nil
}

func (r *fakeFileRepo) Save(ctx context.Context, entity *models.StoredFile) error {
	if entity.ID == 0 {
		entity.ID = r.nextID
		r.nextID++
	}
	cp := *entity
	r.files[entity.ID] = &cp
	return nil
}

func (r *fakeFileRepo) SaveBatch(ctx context.Context, entities []*models.StoredFile) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeFileRepo) Count(ctx context.Context, filter models.StoredFileFilter) (int64, error) {
	return int64(len(r.files)), nil
}

func (r *fakeFileRepo) Exists(ctx context.Context, filter models.StoredFileFilter) (bool, error) {
	return len(r.files) > 0, nil
}

func (r *fakeFileRepo) ByCustomerAndID(ctx context.Context, customerID, id uint) (*models.StoredFile, error) {
	if f, ok := r.files[id]; ok && f.CustomerID == customerID {
		cp := *f
		return &cp, nil
	}
	return nil, nil
}

type fakeOutboxRepo struct {
	jobs   map[uint]*models.SendOutboxJob
	nextID uint
}

func newFakeOutboxRepo() *fakeOutboxRepo {
	return &fakeOutboxRepo{jobs: map[uint]*models.SendOutboxJob{}, nextID: 1}
}

func (r *fakeOutboxRepo) Save(ctx context.Context, job *models.SendOutboxJob) error {
	if job.ID == 0 {
		job.ID = r.nextID
		r.nextID++
	}
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *fakeOutboxRepo) ByID(ctx context.Context, id uint) (*models.SendOutboxJob, error) {
	if j, ok := r.jobs[id]; ok {
		cp := *j
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeOutboxRepo) ClaimDue(ctx context.Context, now time.Time, maxAttempts, limit int) ([]*models.SendOutboxJob, error) {
	var out []*models.SendOutboxJob
	var ids []uint
	for id := range r.jobs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		job := r.jobs[id]
		if job.Status != models.OutboxStatusPending || job.ScheduledAt.After(now) || job.Attempts >= maxAttempts {
			continue
		}
		job.Status = models.OutboxStatusProcessing
		job.Attempts++
		cp := *job
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *fakeOutboxRepo) MarkDone(ctx context.Context, id uint, executedAt time.Time) error {
	if j, ok := r.jobs[id]; ok {
		j.Status = models.OutboxStatusDone
		j.ExecutedAt = &executedAt
	}
	return nil
}

func (r *fakeOutboxRepo) MarkFailed(ctx context.Context, id uint, lastError string, maxAttempts int) error {
	if j, ok := r.jobs[id]; ok {
		if j.Attempts >= maxAttempts {
			j.Status = models.OutboxStatusFailed
		} else {
			j.Status = models.OutboxStatusPending
		}
		j.LastError = &lastError
	}
	return nil
}

type fakeAuditRepo struct {
	logs []*models.AuditLog
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (r *fakeAuditRepo) ByID(ctx context.Context, id uint) (*models.AuditLog, error) {
	return nil, nil
}

func (r *fakeAuditRepo) ByFilter(ctx context.Context, filter models.AuditLogFilter, orderBy string, limit, offset int) ([]*models.AuditLog, error) {
	return r.logs, nil
}

func (r *fakeAuditRepo) Save(ctx context.Context, entity *models.AuditLog) error {
	cp := *entity
	r.logs = append(r.logs, &cp)
	return nil
}

func (r *fakeAuditRepo) SaveBatch(ctx context.Context, entities []*models.AuditLog) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeAuditRepo) Count(ctx context.Context, filter models.AuditLogFilter) (int64, error) {
	return int64(len(r.logs)), nil
}

func (r *fakeAuditRepo) Exists(ctx context.Context, filter models.AuditLogFilter) (bool, error) {
	return len(r.logs) > 0, nil
}

func (r *fakeAuditRepo) ListByCustomer(ctx context.Context, customerID uint, limit, offset int) ([]*models.AuditLog, error) {
	var out []*models.AuditLog
	for _, l := range r.logs {
		if l.CustomerID != nil && *l.CustomerID == customerID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *fakeAuditRepo) lastAction() string {
	if len(r.logs) == 0 {
		return ""
	}
	return r.logs[len(r.logs)-1].Action
}

type fakeAdminRepo struct {
	admins map[uint]*models.Admin
}

func newFakeAdminRepo() *fakeAdminRepo {
	return &fakeAdminRepo{admins: map[uint]*models.Admin{}}
}

func (r *fakeAdminRepo) ByID(ctx context.Context, id uint) (*models.Admin, error) {
	if a, ok := r.admins[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeAdminRepo) ByFilter(ctx context.Context, filter models.AdminFilter, orderBy string, limit, offset int) ([]*models.Admin, error) {
	return nil, nil
}

func (r *fakeAdminRepo) Save(ctx context.Context, entity *models.Admin) error {
	cp := *entity
	r.admins[entity.ID] = &cp
	return nil
}

func (r *fakeAdminRepo) SaveBatch(ctx context.Context, entities []*models.Admin) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeAdminRepo) Count(ctx context.Context, filter models.AdminFilter) (int64, error) {
	return int64(len(r.admins)), nil
}

func (r *fakeAdminRepo) Exists(ctx context.Context, filter models.AdminFilter) (bool, error) {
	return len(r.admins) > 0, nil
}

func (r *fakeAdminRepo) ByUsername(ctx context.Context, username string) (*models.Admin, error) {
	for _, a := range r.admins {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

// fakeStorage keeps file contents in memory, keyed by stored path
type fakeStorage struct {
	contents map[string][]byte
	nextID   int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{contents: map[string][]byte{}, nextID: 1}
}

func (s *fakeStorage) putFile(file *models.StoredFile, content []byte) {
	if file.StoredPath == "" {
		file.StoredPath = fmt.Sprintf("mem://%d", s.nextID)
		s.nextID++
	}
	s.contents[file.StoredPath] = content
}

func (s *fakeStorage) Save(customerID uint, originalFilename, purpose string, content io.Reader) (*models.StoredFile, error) {
	bs, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	file := &models.StoredFile{
		UUID:             uuid.New(),
		CustomerID:       customerID,
		OriginalFilename: originalFilename,
		SizeBytes:        int64(len(bs)),
		MimeType:         "application/octet-stream",
		Purpose:          purpose,
	}
	s.putFile(file, bs)
	return file, nil
}

func (s *fakeStorage) Open(file *models.StoredFile) (io.ReadCloser, error) {
	bs, ok := s.contents[file.StoredPath]
	if !ok {
		return nil, fmt.Errorf("no content for %s", file.StoredPath)
	}
	return io.NopCloser(bytes.NewReader(bs)), nil
}

func (s *fakeStorage) Delete(file *models.StoredFile) error {
	delete(s.contents, file.StoredPath)
	return nil
}
