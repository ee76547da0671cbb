package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xelth-com/mprgo/internal/models"
)

// GormStore implements Store on PostgreSQL through gorm
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

// New creates a GormStore. The gorm.DB must be opened with TranslateError so
// unique violations surface as gorm.ErrDuplicatedKey.
func New(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// --- users ---

func (s *GormStore) UserByID(ctx context.Context, id string) (*models.UserAuth, error) {
	var user models.UserAuth
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) UserByUsername(ctx context.Context, username string) (*models.UserAuth, error) {
	var user models.UserAuth
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) UserByExternalKey(ctx context.Context, key string) (*models.UserAuth, error) {
	var user models.UserAuth
	err := s.db.WithContext(ctx).Where("manager_id = ?", key).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = s.db.WithContext(ctx).Where("username = ? AND manager_id IS NULL", key).First(&user).Error
	}
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) CreateUser(ctx context.Context, user *models.UserAuth) error {
	return translate(s.db.WithContext(ctx).Create(user).Error)
}

func (s *GormStore) TouchLogin(ctx context.Context, id string, at time.Time) error {
	return translate(s.db.WithContext(ctx).Model(&models.UserAuth{}).
		Where("id = ?", id).Update("last_login", at).Error)
}

// --- visits ---

func (s *GormStore) VisitByUUID(ctx context.Context, uuid string) (*models.Visit, error) {
	var visit models.Visit
	err := s.db.WithContext(ctx).
		Preload("Orders", orderLinesByInsertion).
		Where("uuid = ?", uuid).
		First(&visit).Error
	if err != nil {
		return nil, translate(err)
	}
	return &visit, nil
}

func (s *GormStore) LockVisit(ctx context.Context, uuid string) (*models.Visit, error) {
	var visit models.Visit
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("uuid = ?", uuid).
		First(&visit).Error
	if err != nil {
		return nil, translate(err)
	}

	if err := orderLinesByInsertion(s.db.WithContext(ctx)).
		Where("visit_id = ?", visit.ID).
		Find(&visit.Orders).Error; err != nil {
		return nil, err
	}
	return &visit, nil
}

func orderLinesByInsertion(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

func (s *GormStore) ListVisits(ctx context.Context, f VisitFilter) ([]models.Visit, error) {
	q := s.db.WithContext(ctx).Model(&models.Visit{})

	if f.ManagerID != nil {
		q = q.Where("manager_id = ?", *f.ManagerID)
	}
	if f.AuthorID != nil {
		q = q.Where("author_id = ?", *f.AuthorID)
	}
	if f.Processed != nil {
		if *f.Processed {
			q = q.Where("processed <> ''")
		} else {
			q = q.Where("processed = ''")
		}
	}
	if f.Invoice != nil {
		if *f.Invoice {
			q = q.Where("invoice <> ''")
		} else {
			q = q.Where("invoice = ''")
		}
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.ClientINN != nil {
		q = q.Where("client_inn = ?", *f.ClientINN)
	}
	if f.DateFrom != nil {
		q = q.Where("date >= ?", *f.DateFrom)
	}
	if f.Database != nil {
		q = q.Where("data_base = ?", *f.Database)
	}

	q = q.Order("date ASC NULLS LAST").Order("id ASC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var visits []models.Visit
	if err := q.Preload("Orders", orderLinesByInsertion).Find(&visits).Error; err != nil {
		return nil, err
	}
	return visits, nil
}

func (s *GormStore) SaveVisit(ctx context.Context, visit *models.Visit) error {
	db := s.db.WithContext(ctx).Omit(clause.Associations)
	if visit.ID == 0 {
		return translate(db.Create(visit).Error)
	}
	return translate(db.Save(visit).Error)
}

func (s *GormStore) SaveOrderLine(ctx context.Context, line *models.OrderLine) error {
	db := s.db.WithContext(ctx)
	if line.ID != 0 {
		return translate(db.Save(line).Error)
	}
	// a concurrent insert of the same item merges instead of failing
	return translate(db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "visit_id"}, {Name: "product_item"}},
		DoUpdates: clause.AssignmentColumns([]string{"order_qty", "delivered", "recommend", "balance", "sales", "updated_at"}),
	}).Create(line).Error)
}

func (s *GormStore) DeleteVisit(ctx context.Context, id uint) error {
	db := s.db.WithContext(ctx)
	if err := db.Where("visit_id = ?", id).Delete(&models.ChecklistAnswer{}).Error; err != nil {
		return err
	}
	if err := db.Where("visit_id = ?", id).Delete(&models.OrderLine{}).Error; err != nil {
		return err
	}
	res := db.Delete(&models.Visit{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- checklist ---

func (s *GormStore) ListQuestions(ctx context.Context, f QuestionFilter) ([]models.ChecklistQuestion, error) {
	q := s.db.WithContext(ctx).Model(&models.ChecklistQuestion{})
	if f.Active != nil {
		q = q.Where("active = ?", *f.Active)
	}
	if f.ClientType != nil {
		q = q.Where("client_type = ?", *f.ClientType)
	}

	var questions []models.ChecklistQuestion
	err := q.Order("client_type ASC").Order("section ASC").Order("created_at ASC").Find(&questions).Error
	return questions, err
}

func (s *GormStore) QuestionByUUID(ctx context.Context, uuid string) (*models.ChecklistQuestion, error) {
	var question models.ChecklistQuestion
	if err := s.db.WithContext(ctx).Where("uuid = ?", uuid).First(&question).Error; err != nil {
		return nil, translate(err)
	}
	return &question, nil
}

func (s *GormStore) SaveQuestion(ctx context.Context, question *models.ChecklistQuestion) error {
	return translate(s.db.WithContext(ctx).Save(question).Error)
}

func (s *GormStore) DeleteQuestion(ctx context.Context, uuid string) error {
	db := s.db.WithContext(ctx)
	if err := db.Where("question_uuid = ?", uuid).Delete(&models.ChecklistAnswer{}).Error; err != nil {
		return err
	}
	res := db.Where("uuid = ?", uuid).Delete(&models.ChecklistQuestion{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CreateAnswer(ctx context.Context, answer *models.ChecklistAnswer) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(answer).Error)
}

func (s *GormStore) ListAnswers(ctx context.Context, f AnswerFilter) ([]models.ChecklistAnswer, error) {
	q := s.db.WithContext(ctx).Model(&models.ChecklistAnswer{})

	if f.VisitUUID != nil {
		q = q.Where("checklist_answers.visit_uuid = ?", *f.VisitUUID)
	}
	if f.QuestionUUID != nil {
		q = q.Where("checklist_answers.question_uuid = ?", *f.QuestionUUID)
	}
	if f.ClientINN != nil || f.ManagerID != nil {
		q = q.Joins("JOIN visits ON visits.id = checklist_answers.visit_id")
		if f.ClientINN != nil {
			q = q.Where("visits.client_inn = ?", *f.ClientINN)
		}
		if f.ManagerID != nil {
			q = q.Where("visits.manager_id = ?", *f.ManagerID)
		}
	}

	var answers []models.ChecklistAnswer
	err := q.Order("checklist_answers.created_at ASC").Order("checklist_answers.uuid ASC").Find(&answers).Error
	return answers, err
}

// --- photos ---

func (s *GormStore) CreatePhoto(ctx context.Context, photo *models.Photo) error {
	return translate(s.db.WithContext(ctx).Create(photo).Error)
}

func (s *GormStore) ListPhotos(ctx context.Context, visitUUID string) ([]models.Photo, error) {
	var photos []models.Photo
	err := s.db.WithContext(ctx).Where("visit_uuid = ?", visitUUID).Order("created_at ASC").Find(&photos).Error
	return photos, err
}

func (s *GormStore) PhotoByUUID(ctx context.Context, uuid string) (*models.Photo, error) {
	var photo models.Photo
	if err := s.db.WithContext(ctx).Where("uuid = ?", uuid).First(&photo).Error; err != nil {
		return nil, translate(err)
	}
	return &photo, nil
}
