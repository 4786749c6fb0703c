package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/harborcms/admingate"
)

type loginRequest struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

type loginResponse struct {
	Identity    admingate.IdentitySummary `json:"identity"`
	BearerToken string                    `json:"bearer_token"`
	Idle        idlePolicy                `json:"idle"`
}

// idlePolicy tells the frontend how to run its idle monitor.
type idlePolicy struct {
	BudgetSeconds      int `json:"budget_seconds"`
	WarningLeadSeconds int `json:"warning_lead_seconds"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorEnvelope{Error: errorBody{
			Code: CodeBadRequest, Message: "malformed request body",
		}})
		return
	}

	result, err := s.engine.Login(c.Request.Context(), req.Handle, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	s.setSessionCookie(c, result.SessionToken)
	idle := s.engine.Config().Idle
	c.JSON(http.StatusOK, loginResponse{
		Identity:    result.Identity,
		BearerToken: result.BearerToken,
		Idle: idlePolicy{
			BudgetSeconds:      int(idle.Budget.Seconds()),
			WarningLeadSeconds: int(idle.WarningLead.Seconds()),
		},
	})
}

type logoutRequest struct {
	All    bool   `json:"all"`
	Reason string `json:"reason"`
}

func (s *Server) handleLogout(c *gin.Context) {
	var req logoutRequest
	_ = c.ShouldBindJSON(&req)

	destroyed := 0
	if req.All {
		identity, _ := identityFrom(c)
		n, err := s.engine.LogoutAll(c.Request.Context(), identity.ID)
		if err != nil {
			writeError(c, err)
			return
		}
		destroyed = n
	} else if token := sessionTokenFrom(c); token != "" {
		reason := admingate.LogoutManual
		if req.Reason == string(admingate.LogoutIdle) {
			reason = admingate.LogoutIdle
		}
		if err := s.engine.Logout(c.Request.Context(), token, reason); err != nil {
			writeError(c, err)
			return
		}
		destroyed = 1
	}

	s.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"logged_out": true, "sessions_destroyed": destroyed})
}

type refreshRequest struct {
	Token string `json:"token"`
}

func (s *Server) handleRefreshToken(c *gin.Context) {
	var req refreshRequest
	_ = c.ShouldBindJSON(&req)
	if req.Token == "" {
		req.Token = bearerToken(c)
	}

	fresh, err := s.engine.RefreshToken(c.Request.Context(), req.Token)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bearer_token": fresh})
}

// handleVerifySession answers for authenticated callers only; the
// authenticate middleware has already validated the session and slid its
// activity window.
func (s *Server) handleVerifySession(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		writeError(c, admingate.ErrSessionInvalid)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "identity": identity})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (s *Server) handleChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorEnvelope{Error: errorBody{
			Code: CodeBadRequest, Message: "malformed request body",
		}})
		return
	}

	identity, _ := identityFrom(c)
	if err := s.engine.ChangePassword(c.Request.Context(), identity.ID, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(c, err)
		return
	}

	// Every session died with the old password, this one included.
	s.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"changed": true})
}

func (s *Server) handleSecurityLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "50"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 500 {
		perPage = 50
	}

	events, total := s.engine.SecurityLogs(page, perPage)
	if events == nil {
		events = []admingate.AuditEvent{}
	}
	c.JSON(http.StatusOK, gin.H{
		"events":   events,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

// handleCSRF returns the token the middleware already minted for this safe
// request, for clients that prefer reading it from a body over a header.
func (s *Server) handleCSRF(c *gin.Context) {
	cfg := s.engine.Config().CSRF
	value := c.Writer.Header().Get(cfg.HeaderName)
	if value == "" {
		// Issuance failed in the middleware; retry here where the caller
		// expects an explicit answer.
		tok, err := s.engine.IssueCSRF(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		value = tok.Value
		c.Header(cfg.HeaderName, value)
		s.setCSRFCookie(c, value)
	}
	c.JSON(http.StatusOK, gin.H{
		"csrf_token":         value,
		"expires_in_seconds": int(s.engine.CSRFGuard().MaxAge().Seconds()),
	})
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
