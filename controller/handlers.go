package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"dymeta/config"
	"dymeta/dao"
	"dymeta/models"
	"dymeta/service"
	"dymeta/utils"
	"dymeta/ws"
)

// Manager 由启动流程注入，承载批量任务的全部业务入口
var Manager *service.RunManager

// request/response structs
type RegisterReq struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginReq struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type StartRunReq struct {
	TableID   string `json:"table_id" binding:"required"`
	ViewID    string `json:"view_id"`
	FieldID   string `json:"field_id" binding:"required"`
	Overwrite bool   `json:"overwrite"`
}

type FetchReq struct {
	VideoID string `json:"video_id" binding:"required"`
}

func Register(c *gin.Context) {
	var req RegisterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := service.CreateUser(req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	token, _ := generateJWT(u.ID, config.Get().JWTSecret)
	c.JSON(http.StatusOK, gin.H{"user": gin.H{"id": u.ID, "email": u.Email}, "token": token})
}

func Login(c *gin.Context) {
	var req LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := service.Authenticate(req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	token, _ := generateJWT(u.ID, config.Get().JWTSecret)
	c.JSON(http.StatusOK, gin.H{"user": gin.H{"id": u.ID, "email": u.Email}, "token": token})
}

func GetProfile(c *gin.Context) {
	uid := c.GetUint("user_id")
	u, err := dao.GetUserById(int64(uid))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid uid"})
		return
	}
	c.JSON(http.StatusOK, u)
}

// StartRun 发起一次批量补全，表级互斥，重复发起返回409
func StartRun(c *gin.Context) {
	uid := c.GetUint("user_id")
	var req StartRunReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	run, err := Manager.StartBatch(uid, service.BatchOptions{
		TableID:   req.TableID,
		ViewID:    req.ViewID,
		FieldID:   req.FieldID,
		Overwrite: req.Overwrite,
	})
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run})
}

func ListRuns(c *gin.Context) {
	uid := c.GetUint("user_id")
	runs, err := dao.ListRunsByUser(uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// GetRun 返回报表，运行中为实时快照，结束后从库里重建
func GetRun(c *gin.Context) {
	report, err := Manager.Report(c.Param("run_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

func CancelRun(c *gin.Context) {
	if !Manager.Cancel(c.Param("run_id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "任务不存在或已结束"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// FetchOne 单个视频ID或链接的即时查询
func FetchOne(c *gin.Context) {
	// 按IP限流，1分钟20次
	if limited, _ := utils.Limiter.IsLimited("fetch:"+c.ClientIP(), time.Minute, 20); limited {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "请求过于频繁，请稍后再试"})
		return
	}
	var req FetchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	outcome, err := Manager.FetchOne(c.Request.Context(), req.VideoID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !outcome.OK() {
		c.JSON(http.StatusBadGateway, gin.H{"error": outcome.Reason})
		return
	}
	c.JSON(http.StatusOK, gin.H{"video": outcome.Info})
}

// ConnectRun 批量任务进度的ws订阅入口
func ConnectRun(c *gin.Context) {
	runID := c.Param("run_id")
	report, err := Manager.Report(runID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	ws.Progress.Serve(c, runID, report)
}

// Helper: JWT generation
func generateJWT(userID uint, secret string) (string, error) {
	claims := models.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(72 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
