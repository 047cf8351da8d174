package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brandlover88/brandlover-backend/internal/imaging"
	"github.com/brandlover88/brandlover-backend/internal/models"
	"github.com/brandlover88/brandlover-backend/internal/storage"
)

var (
	// ErrValidation covers missing required fields; no remote call was made.
	ErrValidation = errors.New("catalog: missing required fields")
	// ErrNotFound means the edit target is no longer in the cache.
	ErrNotFound = errors.New("catalog: original product not found")
)

// MaxImageSizeMB is the per-file upload ceiling. Larger files are skipped
// with a notice, before compression is attempted.
const MaxImageSizeMB = 50

// EventPublisher fans committed product changes out to the realtime feed.
type EventPublisher interface {
	ProductInserted(p models.Product)
	ProductUpdated(p models.Product)
	ProductDeleted(p models.Product)
}

// Service runs the admin product flows: upload, create, update, delete and
// the cleanup of uncommitted images. All remote state lives in the DB and the
// blob store; the cache and the sessions are the local copies it reconciles.
type Service struct {
	db     *gorm.DB
	store  storage.Store
	cache  *Cache
	events EventPublisher // optional
}

func NewService(db *gorm.DB, store storage.Store, cache *Cache, events EventPublisher) *Service {
	return &Service{db: db, store: store, cache: cache, events: events}
}

func (s *Service) Cache() *Cache { return s.cache }

// LoadProducts fills the cache from the DB, newest first.
func (s *Service) LoadProducts(ctx context.Context) error {
	var products []models.Product
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&products).Error; err != nil {
		return err
	}
	s.cache.ReplaceAll(products)
	return nil
}

// UploadFile is one user-selected file of an upload batch.
type UploadFile struct {
	Name string
	Size int64
	Data []byte
}

// UploadImages runs the upload flow for a batch of files: size ceiling,
// compression, upload under a fresh unique key (never overwriting), then
// appends the resulting public URLs to the draft and the temporary set.
//
// Policy on compression failure: the original bytes are uploaded anyway and
// an error notice names the file, so a transient decode problem never
// silently drops an image. A failed blob upload aborts the rest of the batch
// and best-effort-removes everything uploaded in this call.
func (s *Service) UploadImages(ctx context.Context, sess *Session, files []UploadFile) error {
	if len(files) == 0 {
		return nil
	}
	if err := sess.begin(); err != nil {
		sess.notify("error", tr(sess, "sessionBusy"))
		return err
	}
	defer sess.end()

	sess.setUpload(func(u *UploadState) {
		*u = UploadState{Uploading: true, TotalFiles: len(files)}
	})
	// Progress state is cleared whatever happens to the batch.
	defer sess.setUpload(func(u *UploadState) { *u = UploadState{} })

	type uploaded struct {
		url string
		key string
	}
	var done []uploaded

	abort := func(cause error) error {
		sess.notify("error", tr(sess, "uploadFail")+" "+cause.Error())
		if len(done) > 0 {
			keys := make([]string, 0, len(done))
			for _, d := range done {
				keys = append(keys, d.key)
			}
			s.cleanup(ctx, keys)
		}
		return cause
	}

	for i, file := range files {
		sess.setUpload(func(u *UploadState) {
			u.CurrentFileIndex = i + 1
			u.Progress = 0
		})

		if file.Size > MaxImageSizeMB*1024*1024 {
			sess.notify("error", trf(sess, "imageTooLarge", map[string]string{
				"name": file.Name,
				"max":  strconv.Itoa(MaxImageSizeMB),
			}))
			continue
		}

		final := file.Data
		compressed, err := imaging.Compress(file.Data, imaging.Options{
			OnProgress: func(pct int) {
				sess.setUpload(func(u *UploadState) { u.Progress = pct })
			},
		})
		if err != nil {
			log.Printf("compress %s: %v", file.Name, err)
			sess.notify("error", trf(sess, "imageCompressFail", map[string]string{"name": file.Name}))
		} else {
			final = compressed
		}

		key := fmt.Sprintf("product-%d-%s", time.Now().UnixMilli(), file.Name)
		err = s.store.Upload(ctx, key, bytes.NewReader(final), int64(len(final)), "image/jpeg", false)
		if err != nil {
			return abort(err)
		}

		done = append(done, uploaded{url: s.store.PublicURL(key), key: key})
	}

	sess.mu.Lock()
	for _, d := range done {
		sess.draft.Images = append(sess.draft.Images, d.url)
		sess.temp[d.url] = d.key
	}
	sess.mu.Unlock()
	return nil
}

// RemoveImage drops the image at index from the draft. When it was uploaded
// in this session the blob is removed right away (best-effort); the local
// state update never waits on the remote delete's outcome.
func (s *Service) RemoveImage(ctx context.Context, sess *Session, index int) error {
	sess.mu.Lock()
	if index < 0 || index >= len(sess.draft.Images) {
		sess.mu.Unlock()
		return fmt.Errorf("catalog: image index %d out of range", index)
	}
	url := sess.draft.Images[index]
	key, isTemp := sess.temp[url]
	if isTemp {
		delete(sess.temp, url)
	}
	sess.draft.Images = append(sess.draft.Images[:index], sess.draft.Images[index+1:]...)
	sess.mu.Unlock()

	if isTemp {
		s.cleanup(ctx, []string{key})
	}
	return nil
}

// Create inserts the draft as a new product. On success the row is prepended
// to the cache, the temporary set is cleared (ownership of the images moved
// to the persisted product) and the draft is reset.
func (s *Service) Create(ctx context.Context, sess *Session) (models.Product, error) {
	if err := sess.begin(); err != nil {
		sess.notify("error", tr(sess, "sessionBusy"))
		return models.Product{}, err
	}
	defer sess.end()

	product := sess.Draft()
	if !validDraft(product) {
		sess.notify("error", tr(sess, "fillRequired"))
		return models.Product{}, ErrValidation
	}

	product.ID = uuid.New()
	if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
		sess.notify("error", tr(sess, "addFail")+" "+err.Error())
		return models.Product{}, err
	}

	s.cache.Upsert(product)
	if s.events != nil {
		s.events.ProductInserted(product)
	}

	sess.mu.Lock()
	sess.temp = make(map[string]string)
	sess.draft = emptyDraft()
	sess.editingID = uuid.Nil
	sess.mu.Unlock()

	sess.notify("success", tr(sess, "addSuccess"))
	return product, nil
}

// Update persists the draft over the product being edited. Images present on
// the original but absent from the draft are removed from the blob store
// first; a failure there is logged and the row update still proceeds.
func (s *Service) Update(ctx context.Context, sess *Session) (models.Product, error) {
	if err := sess.begin(); err != nil {
		sess.notify("error", tr(sess, "sessionBusy"))
		return models.Product{}, err
	}
	defer sess.end()

	draft := sess.Draft()
	editingID := sess.EditingID()
	if !validDraft(draft) || editingID == uuid.Nil {
		sess.notify("error", tr(sess, "fillRequired"))
		return models.Product{}, ErrValidation
	}

	original, ok := s.cache.Get(editingID)
	if !ok {
		sess.notify("error", tr(sess, "originalNotFound"))
		return models.Product{}, ErrNotFound
	}

	if removed := removedImages(original.Images, draft.Images); len(removed) > 0 {
		s.cleanup(ctx, storage.KeysFromURLs(removed))
	}

	updated := original
	updated.Brand = draft.Brand
	updated.Model = draft.Model
	updated.Title = draft.Title
	updated.Images = draft.Images
	updated.Price = draft.Price
	updated.Description = draft.Description
	updated.TelegramLink = draft.TelegramLink
	updated.Featured = draft.Featured
	updated.CreatedAt = draft.CreatedAt

	err := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", editingID).
		Select("brand", "model", "title", "images", "price", "description", "telegram_link", "featured", "created_at").
		Updates(&updated).Error
	if err != nil {
		sess.notify("error", tr(sess, "updateFail")+" "+err.Error())
		return models.Product{}, err
	}

	s.cache.Upsert(updated)
	if s.events != nil {
		s.events.ProductUpdated(updated)
	}

	sess.mu.Lock()
	sess.temp = make(map[string]string)
	sess.draft = emptyDraft()
	sess.editingID = uuid.Nil
	sess.mu.Unlock()

	sess.notify("success", tr(sess, "updateSuccess"))
	return updated, nil
}

// Delete removes a product: its image blobs first (best-effort), then the
// row, then the cache entry. Absent ids are a no-op.
func (s *Service) Delete(ctx context.Context, sess *Session, id uuid.UUID) error {
	product, ok := s.cache.Get(id)
	if !ok {
		return nil
	}

	s.cleanup(ctx, storage.KeysFromURLs(product.Images))

	if err := s.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id).Error; err != nil {
		sess.notify("error", tr(sess, "deleteFail")+" "+err.Error())
		return err
	}

	s.cache.Remove(id)
	if s.events != nil {
		s.events.ProductDeleted(product)
	}
	sess.notify("success", tr(sess, "deleteSuccess"))
	return nil
}

// StartEditing copies a cached product into the draft. Temporary images from
// an abandoned previous edit are not cleaned here; Reset does that.
func (s *Service) StartEditing(sess *Session, id uuid.UUID) error {
	product, ok := s.cache.Get(id)
	if !ok {
		sess.notify("error", tr(sess, "originalNotFound"))
		return ErrNotFound
	}
	sess.mu.Lock()
	sess.draft = product
	sess.draft.Images = append(product.Images[:0:0], product.Images...)
	sess.editingID = id
	sess.temp = make(map[string]string)
	sess.mu.Unlock()
	return nil
}

// Reset abandons the session: uncommitted uploads are deleted from the blob
// store and the draft returns to its empty state.
func (s *Service) Reset(ctx context.Context, sess *Session) error {
	if err := sess.begin(); err != nil {
		sess.notify("error", tr(sess, "sessionBusy"))
		return err
	}
	defer sess.end()

	sess.mu.Lock()
	keys := make([]string, 0, len(sess.temp))
	for _, k := range sess.temp {
		keys = append(keys, k)
	}
	sess.temp = make(map[string]string)
	sess.draft = emptyDraft()
	sess.editingID = uuid.Nil
	sess.mu.Unlock()

	if len(keys) > 0 {
		s.cleanup(ctx, keys)
	}
	return nil
}

// cleanup batch-removes blobs. Always best-effort: failures are logged and
// never reach the caller, an undeleted image is an acceptable leak.
func (s *Service) cleanup(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	if err := s.store.Remove(ctx, keys); err != nil {
		log.Printf("cleanup images: %v", err)
	}
}

// validDraft checks the save invariant: required strings non-empty, price in
// digits-and-dot shape, at least one image.
func validDraft(p models.Product) bool {
	return p.Brand != "" && p.Model != "" && p.Title != "" &&
		validPrice(p.Price) && len(p.Images) > 0
}

func validPrice(price string) bool {
	if price == "" {
		return false
	}
	dots := 0
	for _, r := range price {
		switch {
		case r >= '0' && r <= '9':
		case r == '.':
			dots++
			if dots > 1 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// removedImages is original minus edited, by URL, keeping original order.
func removedImages(original, edited []string) []string {
	keep := make(map[string]bool, len(edited))
	for _, u := range edited {
		keep[u] = true
	}
	var removed []string
	for _, u := range original {
		if !keep[u] {
			removed = append(removed, u)
		}
	}
	return removed
}
