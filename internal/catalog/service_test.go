package catalog

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/brandlover88/brandlover-backend/internal/models"
	"github.com/brandlover88/brandlover-backend/internal/storage"
)

// fakeStore is an in-memory storage.Store that records every Remove batch.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	removes [][]string
	failOn  string // upload of this key fails
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string, upsert bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != "" && strings.Contains(key, f.failOn) {
		return fmt.Errorf("fake upload failure for %s", key)
	}
	if _, ok := f.objects[key]; ok && !upsert {
		return storage.ErrObjectExists
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeStore) Remove(ctx context.Context, keys []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	batch := append([]string(nil), keys...)
	f.removes = append(f.removes, batch)
	for _, k := range keys {
		delete(f.objects, k)
	}
	return nil
}

func (f *fakeStore) PublicURL(key string) string {
	return "http://cdn.test/uploads/" + storage.Bucket + "/" + url.PathEscape(key)
}

func (f *fakeStore) removedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []string
	for _, b := range f.removes {
		all = append(all, b...)
	}
	return all
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&models.Product{}))
	return gdb
}

func testService(t *testing.T) (*Service, *fakeStore, *Session, *gorm.DB) {
	t.Helper()
	gdb := testDB(t)
	store := newFakeStore()
	svc := NewService(gdb, store, NewCache(), nil)
	sess := newSession("en")
	return svc, store, sess, gdb
}

func tinyJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := 0; i < 8; i++ {
		img.Set(i, i, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func uploadOne(t *testing.T, svc *Service, sess *Session, name string) {
	t.Helper()
	data := tinyJPEG(t)
	require.NoError(t, svc.UploadImages(context.Background(), sess, []UploadFile{
		{Name: name, Size: int64(len(data)), Data: data},
	}))
}

// seedProduct inserts a product directly into DB and cache, with image URLs
// pointing at objects placed in the fake store.
func seedProduct(t *testing.T, svc *Service, store *fakeStore, imageKeys ...string) models.Product {
	t.Helper()
	urls := make([]string, 0, len(imageKeys))
	for _, k := range imageKeys {
		store.objects[k] = []byte("blob")
		urls = append(urls, store.PublicURL(k))
	}
	p := models.Product{
		ID:           uuid.New(),
		Brand:        "Casio",
		Model:        "F91W",
		Title:        "Digital Watch",
		Price:        "25",
		TelegramLink: models.DefaultTelegramLink,
		Images:       urls,
	}
	require.NoError(t, svc.db.Create(&p).Error)
	svc.cache.Upsert(p)
	return p
}

func TestCreateRejectsWhenRequiredFieldsMissing(t *testing.T) {
	svc, _, sess, gdb := testService(t)

	// images present but title missing
	uploadOne(t, svc, sess, "a.jpg")
	sess.SetDraftFields("Nike", "Air", "", "120", "", "", false)

	_, err := svc.Create(context.Background(), sess)
	require.ErrorIs(t, err, ErrValidation)

	var count int64
	require.NoError(t, gdb.Model(&models.Product{}).Count(&count).Error)
	require.Zero(t, count, "no remote call on validation failure")

	n := sess.Notice()
	require.NotNil(t, n)
	require.Equal(t, "error", n.Type)

	// images missing
	sess2 := newSession("en")
	sess2.SetDraftFields("Nike", "Air", "Sneakers", "120", "", "", false)
	_, err = svc.Create(context.Background(), sess2)
	require.ErrorIs(t, err, ErrValidation)

	// malformed price
	sess3 := newSession("en")
	uploadOne(t, svc, sess3, "b.jpg")
	sess3.SetDraftFields("Nike", "Air", "Sneakers", "12,99", "", "", false)
	_, err = svc.Create(context.Background(), sess3)
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreatePrependsResetsAndTransfersOwnership(t *testing.T) {
	svc, store, sess, gdb := testService(t)
	seedProduct(t, svc, store, "old.jpg")

	uploadOne(t, svc, sess, "new.jpg")
	sess.SetDraftFields("Nike", "Air Max", "Running Shoes", "120", "fresh pair", "", true)

	created, err := svc.Create(context.Background(), sess)
	require.NoError(t, err)

	// exactly once, at the head of both views
	all := svc.Cache().All()
	require.Equal(t, created.ID, all[0].ID)
	require.Len(t, svc.Cache().Search(""), 2)

	var row models.Product
	require.NoError(t, gdb.First(&row, "id = ?", created.ID).Error)
	require.Equal(t, "Nike", row.Brand)
	require.Len(t, row.Images, 1)

	// draft back to empty, temp set cleared
	draft := sess.Draft()
	require.Empty(t, draft.Brand)
	require.Empty(t, draft.Images)
	require.Equal(t, models.DefaultTelegramLink, draft.TelegramLink)
	require.Empty(t, sess.TemporaryImages())

	n := sess.Notice()
	require.NotNil(t, n)
	require.Equal(t, "success", n.Type)

	// ownership moved to the product: a later reset must not delete the blob
	require.NoError(t, svc.Reset(context.Background(), sess))
	require.NotContains(t, store.removedKeys(), storage.KeyFromURL(row.Images[0]))
}

func TestUploadSkipsOversizeFile(t *testing.T) {
	svc, store, sess, _ := testService(t)

	small := tinyJPEG(t)
	files := []UploadFile{
		{Name: "one.jpg", Size: int64(len(small)), Data: small},
		{Name: "huge.jpg", Size: (MaxImageSizeMB + 1) * 1024 * 1024, Data: nil},
		{Name: "three.jpg", Size: int64(len(small)), Data: small},
	}
	require.NoError(t, svc.UploadImages(context.Background(), sess, files))

	draft := sess.Draft()
	require.Len(t, draft.Images, 2, "oversize file contributes no URL")
	require.Len(t, sess.TemporaryImages(), 2)
	require.Len(t, store.objects, 2)

	n := sess.Notice()
	require.NotNil(t, n)
	require.Equal(t, "error", n.Type)
	require.Contains(t, n.Message, "huge.jpg")
	require.Contains(t, n.Message, "50")

	// progress state cleared on exit
	require.False(t, sess.Upload().Uploading)
	require.Zero(t, sess.Upload().TotalFiles)
}

func TestUploadFailureCleansUpPartialBatch(t *testing.T) {
	svc, store, sess, _ := testService(t)
	store.failOn = "two.jpg"

	small := tinyJPEG(t)
	files := []UploadFile{
		{Name: "one.jpg", Size: int64(len(small)), Data: small},
		{Name: "two.jpg", Size: int64(len(small)), Data: small},
		{Name: "three.jpg", Size: int64(len(small)), Data: small},
	}
	err := svc.UploadImages(context.Background(), sess, files)
	require.Error(t, err)

	// the file uploaded before the failure was cleaned up again
	require.Empty(t, store.objects)
	require.Len(t, store.removes, 1)

	require.Empty(t, sess.Draft().Images)
	require.Empty(t, sess.TemporaryImages())
	require.False(t, sess.Upload().Uploading)
}

func TestCompressionFailureUploadsOriginal(t *testing.T) {
	svc, store, sess, _ := testService(t)

	garbage := []byte("not an image at all")
	require.NoError(t, svc.UploadImages(context.Background(), sess, []UploadFile{
		{Name: "broken.bin", Size: int64(len(garbage)), Data: garbage},
	}))

	// image still lands, as the original bytes
	draft := sess.Draft()
	require.Len(t, draft.Images, 1)
	require.Len(t, store.objects, 1)
	for _, data := range store.objects {
		require.Equal(t, garbage, data)
	}

	n := sess.Notice()
	require.NotNil(t, n)
	require.Contains(t, n.Message, "broken.bin")
}

func TestRemoveTemporaryImageCleansBlobExactlyOnce(t *testing.T) {
	svc, store, sess, _ := testService(t)

	uploadOne(t, svc, sess, "temp.jpg")
	temp := sess.TemporaryImages()
	require.Len(t, temp, 1)
	var key string
	for _, k := range temp {
		key = k
	}

	require.NoError(t, svc.RemoveImage(context.Background(), sess, 0))
	require.Empty(t, sess.Draft().Images)
	require.Empty(t, sess.TemporaryImages())

	// abandoning the session must not try to delete it a second time
	require.NoError(t, svc.Reset(context.Background(), sess))

	count := 0
	for _, k := range store.removedKeys() {
		if k == key {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestUpdateDeletesExactlySetDifference(t *testing.T) {
	svc, store, sess, gdb := testService(t)
	original := seedProduct(t, svc, store, "a.jpg", "b.jpg", "c.jpg")

	require.NoError(t, svc.StartEditing(sess, original.ID))
	require.Equal(t, original.ID, sess.EditingID())

	// drop b.jpg (a persisted image: no blob removal yet), add d.jpg
	require.NoError(t, svc.RemoveImage(context.Background(), sess, 1))
	require.Empty(t, store.removedKeys())
	uploadOne(t, svc, sess, "d.jpg")

	updated, err := svc.Update(context.Background(), sess)
	require.NoError(t, err)

	// exactly the set difference was removed: b only
	removed := store.removedKeys()
	require.Len(t, removed, 1)
	require.Equal(t, "b.jpg", removed[0])

	var row models.Product
	require.NoError(t, gdb.First(&row, "id = ?", original.ID).Error)
	require.Len(t, row.Images, 3)
	require.Equal(t, original.Images[0], row.Images[0]) // a kept
	require.Equal(t, original.Images[2], row.Images[1]) // c kept
	require.Contains(t, row.Images[2], "d.jpg")

	cached, ok := svc.Cache().Get(original.ID)
	require.True(t, ok)
	require.Equal(t, []string(updated.Images), []string(cached.Images))

	require.Empty(t, sess.TemporaryImages())
	require.Empty(t, sess.Draft().Brand)
}

func TestUpdateFailsWhenOriginalMissing(t *testing.T) {
	svc, _, sess, _ := testService(t)

	uploadOne(t, svc, sess, "x.jpg")
	sess.SetDraftFields("Nike", "Air", "Sneakers", "120", "", "", false)
	sess.mu.Lock()
	sess.editingID = uuid.New() // points at nothing in the cache
	sess.mu.Unlock()

	_, err := svc.Update(context.Background(), sess)
	require.ErrorIs(t, err, ErrNotFound)

	n := sess.Notice()
	require.NotNil(t, n)
	require.Equal(t, "error", n.Type)
}

func TestDeleteRemovesBlobsRowAndCacheEntry(t *testing.T) {
	svc, store, sess, gdb := testService(t)
	p := seedProduct(t, svc, store, "one.jpg", "two.jpg")

	require.NoError(t, svc.Delete(context.Background(), sess, p.ID))

	require.Len(t, store.removes, 1)
	require.ElementsMatch(t, []string{"one.jpg", "two.jpg"}, store.removes[0])

	var count int64
	require.NoError(t, gdb.Model(&models.Product{}).Count(&count).Error)
	require.Zero(t, count)

	_, ok := svc.Cache().Get(p.ID)
	require.False(t, ok)

	n := sess.Notice()
	require.NotNil(t, n)
	require.Equal(t, "success", n.Type)
}

func TestDeleteUnknownIDIsNoOp(t *testing.T) {
	svc, store, sess, _ := testService(t)

	require.NoError(t, svc.Delete(context.Background(), sess, uuid.New()))
	require.Empty(t, store.removes)
	require.Nil(t, sess.Notice())
}

func TestBusyGuardRejectsConcurrentFlow(t *testing.T) {
	svc, _, sess, _ := testService(t)

	require.NoError(t, sess.begin())
	defer sess.end()

	_, err := svc.Create(context.Background(), sess)
	require.ErrorIs(t, err, ErrBusy)

	err = svc.UploadImages(context.Background(), sess, []UploadFile{{Name: "a.jpg", Size: 1, Data: []byte{0}}})
	require.ErrorIs(t, err, ErrBusy)
}

func TestResetCleansAllTemporaryImages(t *testing.T) {
	svc, store, sess, _ := testService(t)

	data := tinyJPEG(t)
	require.NoError(t, svc.UploadImages(context.Background(), sess, []UploadFile{
		{Name: "a.jpg", Size: int64(len(data)), Data: data},
		{Name: "b.jpg", Size: int64(len(data)), Data: data},
	}))
	require.Len(t, store.objects, 2)

	require.NoError(t, svc.Reset(context.Background(), sess))
	require.Empty(t, store.objects, "abandoned uploads are deleted")
	require.Empty(t, sess.Draft().Images)
	require.Empty(t, sess.TemporaryImages())
}

func TestRemovedImagesSetDifference(t *testing.T) {
	original := []string{"a.jpg", "b.jpg", "c.jpg"}
	edited := []string{"a.jpg", "c.jpg", "d.jpg"}
	require.Equal(t, []string{"b.jpg"}, removedImages(original, edited))

	require.Nil(t, removedImages(nil, edited))
	require.Equal(t, original, removedImages(original, nil))
	require.Nil(t, removedImages(original, original))
}
