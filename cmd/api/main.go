package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"studenthub/internal/auth"
	"studenthub/internal/cloudinary"
	"studenthub/internal/config"
	"studenthub/internal/hub"
	"studenthub/internal/httpmiddleware"
	"studenthub/internal/metrics"
	"studenthub/internal/queue"
	"studenthub/internal/store"
)

func main() {
	cfg := config.Load()

	// Set Gin mode based on environment
	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Printf("warning: db not reachable: %v", err)
	}
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "studenthub:decisions")
	}

	repo := hub.NewRepository(db.Client)
	cache := store.NewLeaderboard(redisClient.Client, cfg.LeaderboardTTL)
	svc := hub.NewService(repo, cache)
	ctx := context.Background()

	// Cloudinary client (nil when not configured)
	var cdnClient *cloudinary.Client
	if cfg.CloudinaryCloudName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		cdnClient = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		log.Println("Cloudinary configured:", cfg.CloudinaryCloudName)
	} else {
		log.Println("Cloudinary not configured (CLOUDINARY_CLOUD_NAME / API_KEY / API_SECRET not set)")
	}

	r := gin.New()

	// Recovery middleware
	r.Use(gin.Recovery())

	// Custom logger
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))

	// CORS middleware
	r.Use(corsMiddleware())

	// Security headers
	r.Use(securityHeaders())

	// Rate limiting
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db != nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.POST("/v1/students/register", func(c *gin.Context) {
		var req struct {
			Email       string `json:"email" binding:"required"`
			Password    string `json:"password" binding:"required"`
			FirstName   string `json:"first_name" binding:"required"`
			LastName    string `json:"last_name" binding:"required"`
			RollNo      string `json:"roll_no" binding:"required"`
			Branch      string `json:"branch" binding:"required"`
			Contact     string `json:"contact"`
			Degree      string `json:"degree"`
			College     string `json:"college"`
			LinkedinURL string `json:"linkedin_url"`
			GithubURL   string `json:"github_url"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		st, err := svc.RegisterStudent(c.Request.Context(), hub.Student{
			Email:       req.Email,
			FirstName:   req.FirstName,
			LastName:    req.LastName,
			RollNo:      req.RollNo,
			Branch:      req.Branch,
			Contact:     req.Contact,
			Degree:      req.Degree,
			College:     req.College,
			LinkedinURL: req.LinkedinURL,
			GithubURL:   req.GithubURL,
		}, req.Password)
		if err != nil {
			c.JSON(httpStatus(err), gin.H{"error": err.Error()})
			return
		}

		tokens, err := auth.Issue(st.Email, hub.RoleStudent, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"student":       st,
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
		})
	})

	r.POST("/v1/students/login", func(c *gin.Context) {
		var req struct {
			Email    string `json:"email" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		st, err := svc.AuthenticateStudent(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			c.JSON(httpStatus(err), gin.H{"error": err.Error()})
			return
		}

		tokens, err := auth.Issue(st.Email, hub.RoleStudent, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
		})
	})

	r.POST("/v1/faculty/register", func(c *gin.Context) {
		var req struct {
			Email      string `json:"email" binding:"required"`
			Password   string `json:"password" binding:"required"`
			FirstName  string `json:"first_name" binding:"required"`
			LastName   string `json:"last_name" binding:"required"`
			Department string `json:"department" binding:"required"`
			Contact    string `json:"contact"`
			College    string `json:"college"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		f, err := svc.RegisterFaculty(c.Request.Context(), hub.Faculty{
			Email:      req.Email,
			FirstName:  req.FirstName,
			LastName:   req.LastName,
			Department: req.Department,
			Contact:    req.Contact,
			College:    req.College,
		}, req.Password)
		if err != nil {
			c.JSON(httpStatus(err), gin.H{"error": err.Error()})
			return
		}

		tokens, err := auth.Issue(f.Email, hub.RoleFaculty, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"faculty":       f,
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
		})
	})

	r.POST("/v1/faculty/login", func(c *gin.Context) {
		var req struct {
			Email    string `json:"email" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		f, err := svc.AuthenticateFaculty(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			c.JSON(httpStatus(err), gin.H{"error": err.Error()})
			return
		}

		tokens, err := auth.Issue(f.Email, hub.RoleFaculty, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
		})
	})

	// Routes available to any signed-in account.
	anyAuth := r.Group("/v1", auth.RequireRole(cfg.JWTSigningKey, cfg.JWTIssuer, hub.RoleStudent, hub.RoleFaculty))

	// Upload endpoint — uploads a base64 data URL or multipart file to Cloudinary
	// Returns the public URL so the caller can use it as evidence_url
	anyAuth.POST("/upload", func(c *gin.Context) {
		if cdnClient == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "document storage not configured"})
			return
		}

		contentType := c.ContentType()
		var result *cloudinary.UploadResult
		var err error

		switch {
		case strings.Contains(contentType, "multipart/form-data"):
			// Multipart file upload
			file, header, ferr := c.Request.FormFile("file")
			if ferr != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
				return
			}
			defer file.Close()
			data, ferr := io.ReadAll(file)
			if ferr != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "read file failed"})
				return
			}
			result, err = cdnClient.UploadBytes(data, header.Filename)

		default:
			// JSON body with base64 data URL
			var body struct {
				Data string `json:"data" binding:"required"`
			}
			if berr := c.ShouldBindJSON(&body); berr != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "provide {\"data\": \"<base64 data URL>\"}"})
				return
			}
			result, err = cdnClient.UploadBase64(body.Data)
		}

		if err != nil {
			log.Printf("cloudinary upload failed: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "document upload failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"url":       result.SecureURL,
			"public_id": result.PublicID,
			"bytes":     result.Bytes,
		})
	})

	anyAuth.GET("/leaderboard", func(c *gin.Context) {
		rank, err := svc.Leaderboard(c.Request.Context())
		if err != nil {
			c.JSON(httpStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rank)
	})

	anyAuth.GET("/students/:email/profile", func(c *gin.Context) {
		claims := auth.CallerClaims(c)
		viewer := hub.Identity{Role: claims.Role, Email: claims.Subject}

		profile, err := svc.StudentProfile(c.Request.Context(), viewer, c.Param("email"))
		if err != nil {
			c.JSON(httpStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, profile)
	})

	// Student routes. The acting student is always the token subject.
	student := r.Group("/v1/me", auth.RequireRole(cfg.JWTSigningKey, cfg.JWTIssuer, hub.RoleStudent))

	student.GET("/dashboard", func(c *gin.Context) {
		stats, err := svc.Dashboard(c.Request.Context(), auth.CallerClaims(c).Subject)
		if err != nil {
			c.JSON(httpStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	student.GET("/activities", func(c *gin.Context) {
		items, err := svc.ActivityFeed(c.Request.Context(), auth.CallerClaims(c).Subject)
		if err != nil {
			c.JSON(httpStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	})

	student.POST("/activities", func(c *gin.Context) {
		var req struct {
			Kind         string `json:"kind" binding:"required"`
			Title        string `json:"title" binding:"required"`
			Organization string `json:"organization"`
			Subject      string `json:"subject"`
			ActivityType string `json:"activity_type"`
			EvidenceURL  string `json:"evidence_url"`
			OccurredOn   string `json:"occurred_on"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		in := hub.SubmissionInput{
			Kind:         hub.SubmissionKind(req.Kind),
			Title:        req.Title,
			Organization: req.Organization,
			Subject:      req.Subject,
			ActivityType: req.ActivityType,
			EvidenceURL:  req.EvidenceURL,
		}
		if req.OccurredOn != "" {
			d, perr := time.Parse("2006-01-02", req.OccurredOn)
			if perr != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "occurred_on must be YYYY-MM-DD"})
				return
			}
			in.OccurredOn = &d
		}

		sub, err := svc.Submit(c.Request.Context(), auth.CallerClaims(c).Subject, in)
		if err != nil {
			c.JSON(httpStatus(err), gin.H{"error": err.Error()})
			return
		}

		metrics.SubmissionsCreated.WithLabelValues(string(sub.Kind)).Inc()
		c.JSON(http.StatusCreated, sub)
	})

	student.GET("/portfolio", func(c *gin.Context) {
		agg, err := svc.AggregateStudent(c.Request.Context(), auth.CallerClaims(c).Subject)
		if err != nil {
			c.JSON(httpStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, agg)
	})

	student.GET("/scoreboard", func(c *gin.Context) {
		board, err := svc.BuildScoreboard(c.Request.Context(), auth.CallerClaims(c).Subject)
		if err != nil {
			c.JSON(httpStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, board)
	})

	student.GET("/attendance", func(c *gin.Context) {
		dash, err := svc.BuildAttendanceDashboard(c.Request.Context(), auth.CallerClaims(c).Subject)
		if err != nil {
			c.JSON(httpStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, dash)
	})

	student.GET("/results", func(c *gin.Context) {
		view, err := svc.ResultHistory(c.Request.Context(), auth.CallerClaims(c).Subject)
		if err != nil {
			c.JSON(httpStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, view)
	})

	student.POST("/results", func(c *gin.Context) {
		var req struct {
			Semester    int     `json:"semester" binding:"required"`
			SGPA        float64 `json:"sgpa"`
			CGPA        float64 `json:"cgpa"`
			DocumentURL string  `json:"document_url"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		res, err := svc.AddResult(c.Request.Context(), auth.CallerClaims(c).Subject, req.Semester, req.SGPA, req.CGPA, req.DocumentURL)
		if err != nil {
			c.JSON(httpStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, res)
	})

	// Faculty routes. The reviewer is always the token subject.
	faculty := r.Group("/v1/faculty", auth.RequireRole(cfg.JWTSigningKey, cfg.JWTIssuer, hub.RoleFaculty))

	faculty.GET("/dashboard", func(c *gin.Context) {
		dash, err := svc.BuildFacultyDashboard(c.Request.Context(), auth.CallerClaims(c).Subject)
		if err != nil {
			c.JSON(httpStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, dash)
	})

	faculty.GET("/approvals", func(c *gin.Context) {
		status := hub.Status(c.DefaultQuery("status", string(hub.StatusPending)))
		page, perPage := 1, 20
		if v := c.Query("page"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				page = parsed
			}
		}
		if v := c.Query("per_page"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				perPage = parsed
			}
		}

		qp, err := svc.ApprovalQueue(c.Request.Context(), auth.CallerClaims(c).Subject, status, page, perPage)
		if err != nil {
			c.JSON(httpStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, qp)
	})

	faculty.POST("/approvals/:id", func(c *gin.Context) {
		var req hub.Decision
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		sub, err := svc.Decide(c.Request.Context(), auth.CallerClaims(c).Subject, c.Param("id"), req)
		if err != nil {
			c.JSON(httpStatus(err), gin.H{"error": err.Error()})
			return
		}

		metrics.DecisionsTotal.WithLabelValues(string(req.Action)).Inc()
		if err := q.Publish(ctx, queue.Message{Type: "decision", Body: []byte(sub.ID)}); err != nil {
			log.Printf("queue publish failed: %v", err)
		}

		c.JSON(http.StatusOK, sub)
	})

	faculty.GET("/students", func(c *gin.Context) {
		roster, err := svc.DepartmentRoster(c.Request.Context(), auth.CallerClaims(c).Subject)
		if err != nil {
			c.JSON(httpStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"students": roster})
	})

	faculty.POST("/subjects", func(c *gin.Context) {
		var req struct {
			Code string `json:"code" binding:"required"`
			Name string `json:"name" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		subject, err := svc.CreateSubject(c.Request.Context(), auth.CallerClaims(c).Subject, req.Code, req.Name)
		if err != nil {
			c.JSON(httpStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, subject)
	})

	faculty.POST("/attendance", func(c *gin.Context) {
		var req struct {
			StudentEmail string `json:"student_email" binding:"required"`
			SubjectID    string `json:"subject_id" binding:"required"`
			Date         string `json:"date" binding:"required"`
			Status       string `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		date, perr := time.Parse("2006-01-02", req.Date)
		if perr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}

		rec, err := svc.MarkAttendance(c.Request.Context(), auth.CallerClaims(c).Subject, req.StudentEmail, req.SubjectID, date, hub.AttendanceStatus(req.Status))
		if err != nil {
			c.JSON(httpStatus(err), gin.H{"error": err.Error()})
			return
		}

		metrics.AttendanceMarks.Inc()
		c.JSON(http.StatusCreated, rec)
	})

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// httpStatus maps service errors to response codes.
func httpStatus(err error) int {
	switch {
	case hub.IsNotFound(err):
		return http.StatusNotFound
	case hub.IsUnauthorized(err):
		return http.StatusForbidden
	case hub.IsInvalid(err):
		return http.StatusBadRequest
	case hub.IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
