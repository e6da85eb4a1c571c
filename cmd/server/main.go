package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/arhipvp/docrouter/internal/archive"
	"github.com/arhipvp/docrouter/internal/cache"
	"github.com/arhipvp/docrouter/internal/config"
	"github.com/arhipvp/docrouter/internal/decision"
	"github.com/arhipvp/docrouter/internal/domain"
	"github.com/arhipvp/docrouter/internal/extract"
	"github.com/arhipvp/docrouter/internal/handlers"
	"github.com/arhipvp/docrouter/internal/lang"
	"github.com/arhipvp/docrouter/internal/middleware"
	"github.com/arhipvp/docrouter/internal/report"
	"github.com/arhipvp/docrouter/pkg/logger"
)

const (
	// Время на аккуратное завершение работы сервера (доделать текущие запросы).
	shutdownTimeout = 30 * time.Second

	// Таймаут на один HTTP-запрос. OCR больших сканов — дело небыстрое.
	requestTimeout = 5 * time.Minute
)

// App — сердце приложения.
// Структура держит вместе все зависимости, чтобы их не приходилось
// передавать глобально. Это упрощает тестирование и управление жизненным
// циклом (старт/стоп).
type App struct {
	config     *config.Config
	logger     *zap.Logger
	cache      *cache.ShardedCache
	archive    *archive.Service
	extractor  *extract.Service
	classifier domain.Classifier
	queue      *decision.Queue
	resolver   *decision.Resolver
	server     *http.Server

	// Механизм для гарантированной однократной инициализации.
	initOnce sync.Once
	initErr  error

	// Ждем, пока горутина сервера закончит работу.
	wg sync.WaitGroup

	// Гарантия, что Shutdown выполнится только один раз.
	shutdownOnce sync.Once
}

// NewApp создает "пустую" заготовку приложения.
// Основная настройка произойдет позже в методе Initialize().
func NewApp() *App {
	return &App{}
}

// Initialize запускает процесс настройки всех компонентов.
// Работает по принципу "все или ничего": если что-то сломалось — возвращаем ошибку.
func (a *App) Initialize() error {
	a.initOnce.Do(func() {
		a.initErr = a.doInitialize()
	})
	return a.initErr
}

// doInitialize — "сборочный цех" приложения.
// Порядок важен: сначала базовые вещи (логгер, конфиг), потом адаптеры
// (классификатор, извлечение), потом очередь решений и, наконец, HTTP.
func (a *App) doInitialize() error {
	// 1. Переменные окружения из .env — до конфига, чтобы viper их увидел.
	// Отсутствие файла — это норма на проде.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "предупреждение: .env не прочитался: %v\n", err)
	}

	// 2. Загружаем настройки — до логгера, чтобы конфиг определял его уровень.
	// Сначала смотрим переменную окружения, если нет — ищем файл по умолчанию.
	configPath := os.Getenv("APP_CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	// Пытаемся загрузить файл. Если его нет — не страшно, работаем на
	// значениях по умолчанию и переменных окружения.
	configFileErr := config.Load(configPath)
	if configFileErr != nil {
		if err := config.Load(""); err != nil {
			return fmt.Errorf("критическая ошибка конфигурации: %w", err)
		}
	}
	a.config = config.Get()

	// 3. Логгер, чтобы видеть, что происходит (или почему упало).
	if err := logger.Init(a.config.Logging.Level, a.config.Logging.Development); err != nil {
		return fmt.Errorf("не удалось инициализировать логгер: %w", err)
	}
	a.logger = logger.Get()

	if configFileErr != nil {
		a.logger.Warn("не удалось загрузить конфиг-файл, используем значения по умолчанию и ENV",
			zap.Error(configFileErr),
		)
	}
	a.logger.Info("конфигурация загружена",
		zap.String("server_host", a.config.Server.Host),
		zap.Int("server_port", a.config.Server.Port),
		zap.String("archive_root", a.config.Archive.Root),
		zap.String("ocr_engine", a.config.Extraction.OCREngine),
	)

	// 4. Прогреваем классификатор языков.
	// Модели загружаются один раз и до первого запроса; если прогрев упал,
	// сервис продолжает работать, но /lang будет отвечать {null, 0.0}.
	classifier, err := lang.NewDetector(a.logger)
	if err != nil {
		a.logger.Warn("прогрев классификатора языков не удался, работаем в деградированном режиме",
			zap.Error(err),
		)
	}
	a.classifier = classifier

	// 5. Собираем конвейер извлечения текста.
	a.extractor = a.buildExtractor()

	// 6. Очередь решений и ее единственный потребитель — консольный резолвер.
	a.queue = decision.NewQueue()
	prompter := decision.NewConsolePrompter(os.Stdin, os.Stdout, a.config.Decisions.PreviewLimit)
	a.resolver = decision.NewResolver(
		a.queue,
		prompter,
		time.Duration(a.config.Decisions.CallbackTimeout)*time.Second,
		a.logger,
	)
	a.resolver.Start()

	// 7. Кэш сканов архива и сами файловые утилиты.
	a.cache = cache.NewShardedCache(a.config.Archive.Shards, a.config.Archive.CacheTTL)
	a.cache.StartCleanupWorker()
	a.archive = archive.NewService(a.config.Archive.Root, a.cache, a.logger)

	// 8. И наконец, поднимаем HTTP сервер.
	a.initializeServer()

	a.logger.Info("приложение готово к работе")
	return nil
}

// buildExtractor выбирает OCR-движок по конфигу и собирает конвейер.
func (a *App) buildExtractor() *extract.Service {
	cfg := a.config.Extraction
	textLayer := extract.NewPdftotextExtractor(cfg.PdftotextPath)

	var ocr domain.OCREngine
	switch cfg.OCREngine {
	case "tesseract":
		ocr = extract.NewTesseractEngine(cfg.PdftoppmPath, a.logger)
	default:
		ocr = extract.NewOcrmypdfEngine(cfg.OcrmypdfPath, textLayer, a.logger)
	}

	return extract.NewService(
		textLayer,
		extract.NewPdfcpuPageCounter(),
		ocr,
		a.logger,
		cfg.MaxConcurrent,
		cfg.MaxPagesOCR,
	)
}

// initializeServer настраивает HTTP-роутинг и middleware.
func (a *App) initializeServer() {
	reporter := report.NewPrinter(os.Stdout, a.logger)
	h := handlers.NewHandler(
		a.extractor,
		a.classifier,
		a.queue,
		a.archive,
		reporter,
		a.config.Extraction.DefaultOCRLangs,
		a.logger,
	)

	r := chi.NewRouter()

	// Проверка здоровья сервиса (/health).
	// Важно: без middleware, чтобы отвечать максимально быстро и надежно.
	r.Get("/health", h.HealthCheck)

	// Цепочка middleware (выполняются по порядку для каждого запроса):
	// 1. Логирование (кто пришел?)
	// 2. Recovery (чтобы паника не уронила весь сервер)
	// 3. Timeout (чтобы запросы не висели вечно)
	// 4. CORS (разрешаем браузерные вызовы из редактора воркфлоу)
	r.Group(func(r chi.Router) {
		r.Use(middleware.LoggingMiddleware(a.logger))
		r.Use(middleware.RecoveryMiddleware(a.logger))
		r.Use(middleware.TimeoutMiddleware(requestTimeout))
		r.Use(middleware.CORSMiddleware())

		// Извлечение текста и язык
		r.Post("/extract-text", h.ExtractText)
		r.Post("/extract-text-by-path", h.ExtractTextByPath)
		r.Post("/lang", h.DetectLanguage)

		// Человеческие решения и финальный отчет
		r.Post("/decisions/init", h.InitDecision)
		r.Post("/print-report", h.PrintReport)

		// Архив
		r.Get("/folder-endpoints", h.FolderEndpoints)
		r.Get("/list-archive-tree", h.ArchiveTree)
		r.Post("/route-apply", h.RouteApply)
		r.Post("/fs-move", h.FsMove)
		r.Post("/fs-mkdir", h.FsMkdir)
	})

	addr := fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port)
	a.server = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  requestTimeout, // Загрузка больших PDF бывает медленной
		WriteTimeout: requestTimeout,
		IdleTimeout:  60 * time.Second,
	}
}

// Start запускает сервер и начинает принимать запросы.
// Блокирует выполнение только в горутине сервера.
func (a *App) Start() error {
	if err := a.Initialize(); err != nil {
		return err
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.logger.Info("запуск HTTP сервера",
			zap.String("адрес", a.server.Addr),
		)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Fatal("сервер упал с ошибкой", zap.Error(err))
		}
	}()

	return nil
}

// Shutdown аккуратно останавливает приложение.
// Порядок обратный запуску: сначала перестаем принимать запросы, потом
// закрываем очередь (новые решения получают 503), даем резолверу довести
// текущее решение и гасим фоновые службы.
func (a *App) Shutdown() error {
	var shutdownErr error

	a.shutdownOnce.Do(func() {
		a.logger.Info("начинаем остановку приложения...")

		// 1. Останавливаем прием новых HTTP запросов
		if a.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			if err := a.server.Shutdown(ctx); err != nil {
				a.logger.Error("ошибка при остановке сервера", zap.Error(err))
				shutdownErr = err
			}
			cancel()
		}

		// 2. Закрываем очередь решений: производители получают отказ,
		// остаток очереди резолвер еще может дочитать.
		if a.queue != nil {
			a.queue.Close()
		}

		// 3. Останавливаем резолвер (дожидаемся завершения текущего решения)
		if a.resolver != nil {
			a.resolver.Stop()
		}

		// 4. Останавливаем чистильщик кэша
		if a.cache != nil {
			a.cache.StopCleanupWorker()
		}

		// 5. Ждем, пока горутина сервера действительно завершится
		done := make(chan struct{})
		go func() {
			a.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			a.logger.Info("все фоновые процессы завершены")
		case <-time.After(shutdownTimeout):
			a.logger.Warn("таймаут ожидания завершения процессов (принудительный выход)")
		}

		// Сбрасываем буфер логов на диск
		_ = logger.Sync()

		a.logger.Info("приложение остановлено успешно")
	})

	return shutdownErr
}

func main() {
	app := NewApp()

	if err := app.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Фатальная ошибка запуска: %v\n", err)
		os.Exit(1)
	}

	// Ожидание сигналов завершения от ОС (Ctrl+C или docker stop)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	if err := app.Shutdown(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка при остановке: %v\n", err)
		os.Exit(1)
	}
}
