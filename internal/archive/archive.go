package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arhipvp/docrouter/internal/cache"
	"github.com/arhipvp/docrouter/internal/domain"
)

var (
	// ErrSourceMissing is returned by Move when the source file does not exist
	ErrSourceMissing = errors.New("source file does not exist")
	// ErrRelPathRequired is returned when a relative archive path is empty
	ErrRelPathRequired = errors.New("relative path is required")
	// ErrOutsideRoot is returned when a path escapes the archive root
	ErrOutsideRoot = errors.New("path escapes the archive root")
)

const maxNameRunes = 80

// Service — файловые утилиты архива. Архив устроен жестко: ровно четыре
// уровня каталогов (категория/контрагент/год/тип), и конечные точки
// маршрутизации — это пути глубины четыре. Всё остальное дерево показываем
// только для обзора.
type Service struct {
	root   string
	cache  *cache.ShardedCache
	logger *zap.Logger

	// подменяется в тестах для стабильного префикса даты
	now func() time.Time
}

// NewService creates the archive service rooted at root. The cache is
// optional; without it every call rescans the filesystem.
func NewService(root string, scanCache *cache.ShardedCache, logger *zap.Logger) *Service {
	return &Service{
		root:   filepath.Clean(root),
		cache:  scanCache,
		logger: logger,
		now:    time.Now,
	}
}

// Root returns the archive root directory
func (s *Service) Root() string {
	return s.root
}

// Endpoints возвращает все пути глубины ровно четыре относительно корня,
// в виде "a/b/c/d". Каталоги меньшей глубины не являются конечными точками
// и в список не попадают. Отсутствующий корень — пустой список, не ошибка.
func (s *Service) Endpoints() ([]string, error) {
	if cached, ok := s.cacheGet("endpoints"); ok {
		return cached.([]string), nil
	}

	endpoints := []string{}
	if _, err := os.Stat(s.root); err != nil {
		if os.IsNotExist(err) {
			return endpoints, nil
		}
		return nil, fmt.Errorf("failed to stat archive root: %w", err)
	}

	level1, err := listDirs(s.root)
	if err != nil {
		return nil, err
	}
	for _, a := range level1 {
		level2, err := listDirs(filepath.Join(s.root, a))
		if err != nil {
			return nil, err
		}
		for _, b := range level2 {
			level3, err := listDirs(filepath.Join(s.root, a, b))
			if err != nil {
				return nil, err
			}
			for _, c := range level3 {
				level4, err := listDirs(filepath.Join(s.root, a, b, c))
				if err != nil {
					return nil, err
				}
				for _, d := range level4 {
					endpoints = append(endpoints, strings.Join([]string{a, b, c, d}, "/"))
				}
			}
		}
	}

	s.cacheSet("endpoints", endpoints)
	return endpoints, nil
}

// Tree возвращает полное дерево каталогов архива любой глубины.
// Отсутствующий корень — nil, не ошибка.
func (s *Service) Tree() (*domain.TreeNode, error) {
	if cached, ok := s.cacheGet("tree"); ok {
		return cached.(*domain.TreeNode), nil
	}

	if _, err := os.Stat(s.root); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat archive root: %w", err)
	}

	tree, err := s.buildTree(s.root, "")
	if err != nil {
		return nil, err
	}

	s.cacheSet("tree", tree)
	return tree, nil
}

func (s *Service) buildTree(dir, rel string) (*domain.TreeNode, error) {
	node := &domain.TreeNode{
		Name:     filepath.Base(dir),
		PathRel:  rel,
		Children: []*domain.TreeNode{},
	}
	if rel == "" {
		node.Name = filepath.Base(s.root)
	}

	names, err := listDirs(dir)
	if err != nil {
		return nil, err
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})

	for _, name := range names {
		childRel := name
		if rel != "" {
			childRel = rel + "/" + name
		}
		child, err := s.buildTree(filepath.Join(dir, name), childRel)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

// ApplyRoute резолвит выбранную конечную точку в абсолютный каталог и
// финальное имя файла вида YYYY-MM-DD__<safe>.pdf. Файловую систему не
// трогает: создание каталога и перенос — отдельные операции.
func (s *Service) ApplyRoute(inboxName, selectedPath string) (*domain.RouteTarget, error) {
	rel, err := s.normalizeRel(selectedPath)
	if err != nil {
		return nil, err
	}

	name := inboxName
	if strings.TrimSpace(name) == "" {
		name = "document.pdf"
	}
	base := strings.TrimSuffix(name, filepath.Ext(name))
	finalName := fmt.Sprintf("%s__%s.pdf", s.now().Format("2006-01-02"), SanitizeName(base))

	target := &domain.RouteTarget{
		FinalRelPath: rel,
		FinalPath:    filepath.Join(s.root, filepath.FromSlash(rel)),
		FinalName:    finalName,
	}
	s.logger.Info("route resolved",
		zap.String("rel", rel),
		zap.String("final_dir", target.FinalPath),
		zap.String("final_name", finalName),
	)
	return target, nil
}

// Move перемещает файл в каталог назначения под санитизированным именем.
// Каталог создается при необходимости. Если rename невозможен (другая
// файловая система), падаем назад на копирование с удалением исходника.
func (s *Service) Move(srcPath, destDir, destName string) (string, error) {
	src := filepath.Clean(srcPath)
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return "", ErrSourceMissing
		}
		return "", fmt.Errorf("failed to stat source: %w", err)
	}

	if err := os.MkdirAll(filepath.Clean(destDir), 0o755); err != nil {
		return "", fmt.Errorf("failed to create destination dir: %w", err)
	}

	dest := filepath.Join(filepath.Clean(destDir), SanitizeName(destName))
	if err := os.Rename(src, dest); err != nil {
		if copyErr := copyFile(src, dest); copyErr != nil {
			return "", fmt.Errorf("failed to move file: %w", copyErr)
		}
		if rmErr := os.Remove(src); rmErr != nil {
			s.logger.Warn("moved by copy but source not removed",
				zap.String("src", src),
				zap.Error(rmErr),
			)
		}
	}

	s.invalidate()
	s.logger.Info("file moved", zap.String("src", src), zap.String("dest", dest))
	return dest, nil
}

// Mkdir создает каталог по относительному пути внутри корня архива.
// Существующий каталог — не ошибка. Выход за пределы корня запрещен.
func (s *Service) Mkdir(relPath string) (string, error) {
	rel, err := s.normalizeRel(relPath)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	s.invalidate()
	s.logger.Info("archive directory created", zap.String("dir", dest))
	return dest, nil
}

// normalizeRel trims and normalizes a relative archive path and rejects
// anything that would resolve outside the root.
func (s *Service) normalizeRel(p string) (string, error) {
	rel := strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	rel = strings.Trim(rel, "/")
	if rel == "" {
		return "", ErrRelPathRequired
	}
	for _, segment := range strings.Split(rel, "/") {
		if segment == ".." {
			return "", ErrOutsideRoot
		}
	}
	return rel, nil
}

// SanitizeName replaces filesystem-hostile characters with underscores and
// caps the name at 80 runes.
func SanitizeName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '\\', '/', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))

	runes := []rune(cleaned)
	if len(runes) > maxNameRunes {
		cleaned = string(runes[:maxNameRunes])
	}
	return cleaned
}

func (s *Service) cacheGet(kind string) (interface{}, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(kind + ":" + s.root)
}

func (s *Service) cacheSet(kind string, value interface{}) {
	if s.cache == nil {
		return
	}
	s.cache.Set(kind+":"+s.root, value)
}

// invalidate drops cached scans after any write to the archive
func (s *Service) invalidate() {
	if s.cache == nil {
		return
	}
	s.cache.Delete("endpoints:" + s.root)
	s.cache.Delete("tree:" + s.root)
}

func listDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	return out.Close()
}
