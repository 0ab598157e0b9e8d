// Пакет filestore — blob-хранилище PDF-артефактов на диске.
// Обеспечивает streaming-запись с подсчётом SHA-256 на лету,
// чтение и атомарную публикацию файла.
//
// Играет роль внешнего content-addressable хранилища из архитектуры:
// остальной код адресует файлы относительным storage path.
package filestore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileStore — управление физическими файлами на диске.
type FileStore struct {
	// dataDir — корневая директория хранения файлов (SM_DATA_DIR)
	dataDir string
}

// SaveResult — результат сохранения файла на диск.
type SaveResult struct {
	// StoragePath — относительный путь файла в dataDir
	StoragePath string
	// FullPath — абсолютный путь файла на диске
	FullPath string
	// Size — размер записанных данных в байтах
	Size int64
	// Checksum — SHA-256 хэш содержимого файла
	Checksum string
}

// New создаёт новый FileStore. Проверяет и создаёт директорию
// если она не существует.
func New(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dataDir, err)
	}

	return &FileStore{dataDir: dataDir}, nil
}

// SaveUpload записывает загруженный документ на диск с генерацией
// уникального имени. Формат имени: {name}_{owner}_{timestamp}_{uuid}.{ext}
//
// Паттерн: temp файл → запись + SHA-256 → fsync → atomic rename.
// При ошибке temp файл удаляется.
func (fs *FileStore) SaveUpload(reader io.Reader, originalFilename, ownerID string) (*SaveResult, error) {
	storageName := generateStorageName(originalFilename, ownerID)
	return fs.save(reader, storageName)
}

// SaveNamed записывает файл под заданным относительным именем.
// Используется для подписанных артефактов, имя которых строится
// детерминированно из таймстампа и basename оригинала.
func (fs *FileStore) SaveNamed(reader io.Reader, storageName string) (*SaveResult, error) {
	name := sanitizePath(storageName)
	if name == "" {
		return nil, fmt.Errorf("недопустимое имя файла: %q", storageName)
	}
	return fs.save(reader, name)
}

// save — общий путь записи: temp файл → fsync → atomic rename.
func (fs *FileStore) save(reader io.Reader, storageName string) (*SaveResult, error) {
	fullPath := filepath.Join(fs.dataDir, storageName)
	tmpPath := fullPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	// Streaming запись с одновременным подсчётом SHA-256
	hasher := sha256.New()
	tee := io.TeeReader(reader, hasher)

	size, err := io.Copy(f, tee)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}

	// fsync для гарантии записи на диск
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	// Атомарный rename
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return &SaveResult{
		StoragePath: storageName,
		FullPath:    fullPath,
		Size:        size,
		Checksum:    hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Open открывает файл для чтения. storagePath — относительный путь
// файла в dataDir. Вызывающий код обязан закрыть файл.
func (fs *FileStore) Open(storagePath string) (*os.File, error) {
	name := sanitizePath(storagePath)
	if name == "" {
		return nil, fmt.Errorf("недопустимый путь файла: %q", storagePath)
	}

	f, err := os.Open(filepath.Join(fs.dataDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("файл не найден: %s", storagePath)
		}
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", storagePath, err)
	}

	return f, nil
}

// Exists проверяет существование файла на диске.
func (fs *FileStore) Exists(storagePath string) bool {
	_, err := os.Stat(filepath.Join(fs.dataDir, storagePath))
	return err == nil
}

// DataDir возвращает путь к директории данных.
func (fs *FileStore) DataDir() string {
	return fs.dataDir
}

// generateStorageName генерирует имя файла для хранения на диске.
// Формат: {name}_{owner}_{timestamp}_{uuid}.{ext}
// Пример: contract_alice_20260828150405_a1b2c3d4.pdf
func generateStorageName(originalFilename, ownerID string) string {
	ext := filepath.Ext(originalFilename)
	name := strings.TrimSuffix(filepath.Base(originalFilename), ext)

	// Убираем небезопасные символы из имени и владельца
	name = sanitize(name)
	owner := sanitize(ownerID)

	// Ограничиваем длину для предотвращения проблем с FS
	if len(name) > 50 {
		name = name[:50]
	}
	if len(owner) > 20 {
		owner = owner[:20]
	}

	ts := time.Now().UTC().Format("20060102150405")
	uid := uuid.New().String()[:8]

	if ext == "" {
		ext = ".pdf"
	}
	return fmt.Sprintf("%s_%s_%s_%s%s", name, owner, ts, uid, ext)
}

// sanitize заменяет небезопасные для имени файла символы на '_'.
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// sanitizePath нормализует относительный путь и отклоняет выход
// за пределы dataDir. Возвращает пустую строку для недопустимого пути.
func sanitizePath(p string) string {
	name := filepath.Clean(filepath.ToSlash(p))
	if name == "." || name == "" || strings.HasPrefix(name, "..") || filepath.IsAbs(name) {
		return ""
	}
	return name
}

// CheckReady проверяет доступность директории данных на запись.
// Реализует интерфейс ReadinessChecker health endpoint'а.
func (fs *FileStore) CheckReady() (status, message string) {
	probe := filepath.Join(fs.dataDir, ".ready-probe")

	f, err := os.OpenFile(probe, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "fail", fmt.Sprintf("директория данных недоступна на запись: %v", err)
	}
	f.Close()
	os.Remove(probe)

	return "ok", "директория данных доступна"
}
