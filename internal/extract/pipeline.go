package extract

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/arhipvp/docrouter/internal/domain"
)

// Service — конвейер извлечения текста из документа.
// Единая логика: попытка прочитать текстовый слой -> при необходимости OCR.
// Правила принятия решений:
// 1. Ошибка подсчета страниц — не фатальна, pages останется неизвестным (nil).
// 2. Ошибка чтения текстового слоя — не фатальна, считаем что текста нет.
// 3. Пустой (после trim) текст — повод для OCR. Слой из одних пробелов
//    равнозначен отсутствию слоя.
// 4. Ошибка OCR, когда OCR необходим — фатальна для этого документа
//    (*ExtractionError), сервис при этом продолжает работать.
// Сервис не хранит состояния между вызовами и безопасен для конкурентного
// использования; семафор лишь ограничивает число одновременных извлечений.
type Service struct {
	textLayer domain.TextLayerExtractor
	pages     domain.PageCounter
	ocr       domain.OCREngine
	logger    *zap.Logger

	// Ограничитель одновременных извлечений (OCR прожорлив к CPU).
	limiter *Limiter

	// Потолок страниц для OCR. 0 — без ограничений.
	maxPagesOCR int
}

// Limiter — простой ограничитель нагрузки на семафоре.
// Не дает запустить больше N извлечений одновременно.
type Limiter struct {
	semaphore chan struct{}
}

// NewLimiter создает ограничитель с буфером на maxConcurrent операций.
func NewLimiter(maxConcurrent int) *Limiter {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Limiter{semaphore: make(chan struct{}, maxConcurrent)}
}

// Acquire пытается получить разрешение на работу.
// Если лимит исчерпан — блокируется, пока кто-то не освободит место.
// Если контекст отменен (например, таймаут запроса) — возвращает ошибку.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case l.semaphore <- struct{}{}:
		return nil
	}
}

// Release освобождает место для следующих операций.
func (l *Limiter) Release() {
	select {
	case <-l.semaphore:
	default:
		// Защита от паники при попытке освободить пустой семафор
	}
}

// NewService собирает конвейер из адаптеров.
func NewService(
	textLayer domain.TextLayerExtractor,
	pages domain.PageCounter,
	ocr domain.OCREngine,
	logger *zap.Logger,
	maxConcurrent int,
	maxPagesOCR int,
) *Service {
	return &Service{
		textLayer:   textLayer,
		pages:       pages,
		ocr:         ocr,
		logger:      logger,
		limiter:     NewLimiter(maxConcurrent),
		maxPagesOCR: maxPagesOCR,
	}
}

// Extract выполняет полный цикл извлечения для одного документа.
// ocrLangs — языки для OCR ("deu+eng+rus"); пустая строка выключает OCR.
func (s *Service) Extract(ctx context.Context, path string, ocrLangs string) (*domain.ExtractionResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("превышен лимит одновременных извлечений: %w", err)
	}
	defer s.limiter.Release()

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("документ недоступен: %w", err)
	}
	sizeBytes := info.Size()

	s.logger.Info("извлечение начато",
		zap.String("file", path),
		zap.String("ocr_langs", ocrLangs),
	)

	// Подсчет страниц и чтение текстового слоя независимы друг от друга,
	// поэтому выполняем их параллельно. Обе операции не фатальны:
	// ошибки переводятся в "страницы неизвестны" / "текста нет".
	var (
		pages *int
		text  string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, countErr := s.pages.PageCount(gctx, path)
		if countErr != nil {
			s.logger.Warn("не удалось посчитать страницы, продолжаем без них",
				zap.String("file", path),
				zap.Error(countErr),
			)
			return nil
		}
		pages = &n
		return nil
	})
	g.Go(func() error {
		layer, layerErr := s.textLayer.ExtractText(gctx, path)
		if layerErr != nil {
			s.logger.Warn("текстовый слой не прочитался, попробуем OCR",
				zap.String("file", path),
				zap.Error(layerErr),
			)
			return nil
		}
		text = layer
		return nil
	})
	// Обе горутины возвращают nil, Wait нужен только как барьер.
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	usedOCR := false
	if needsOCR(text) {
		switch {
		case ocrLangs == "":
			// Текста нет и OCR выключен — валидное терминальное состояние.
			s.logger.Info("нет текста, OCR выключен — возвращаем пустой результат",
				zap.String("file", path),
			)
			text = ""

		case s.maxPagesOCR > 0 && pages != nil && *pages > s.maxPagesOCR:
			// Предохранительный клапан: не загоняем OCR в многочасовую работу.
			s.logger.Warn("OCR пропущен: документ превышает потолок страниц",
				zap.String("file", path),
				zap.Int("pages", *pages),
				zap.Int("max_pages_ocr", s.maxPagesOCR),
			)
			text = ""

		default:
			ocrText, ocrErr := s.ocr.Recognize(ctx, path, ocrLangs)
			if ocrErr != nil {
				// OCR был необходим и не сработал — это ошибка операции.
				return nil, &ExtractionError{
					Path:   path,
					Detail: "OCR failed; make sure the OCR tooling is installed and retry",
					Err:    ocrErr,
				}
			}
			text = ocrText
			usedOCR = true
		}
	}

	result := &domain.ExtractionResult{
		Text: text,
		// Если текст добыл OCR — слой уже «наш», оригинальным он не считается.
		HasTextLayer: strings.TrimSpace(text) != "" && !usedOCR,
		UsedOCR:      usedOCR,
		Pages:        pages,
		SizeBytes:    sizeBytes,
	}

	s.logger.Info("извлечение завершено",
		zap.String("file", path),
		zap.Int("chars", len(result.Text)),
		zap.Bool("has_text_layer", result.HasTextLayer),
		zap.Bool("used_ocr", result.UsedOCR),
		zap.Int64("size_bytes", result.SizeBytes),
	)

	return result, nil
}

// needsOCR решает, нужен ли OCR: текстовый слой из одних пробелов
// равнозначен его отсутствию.
func needsOCR(text string) bool {
	return strings.TrimSpace(text) == ""
}
