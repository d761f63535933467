package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	accreditationdomain "github.com/smallbiznis/accreditation/internal/accreditation/domain"
)

func (s *Server) CreateAccreditation(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req accreditationdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError("malformed request body", err))
		return
	}

	resp, err := s.accreditationSvc.Create(c.Request.Context(), identity, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (s *Server) ListAccreditations(c *gin.Context) {
	resp, err := s.accreditationSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetAccreditation(c *gin.Context) {
	id, err := parseAccreditationID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.accreditationSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetOwnAccreditation(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id, err := parseAccreditationID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.accreditationSvc.GetByIDForOwner(c.Request.Context(), identity.ID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func parseAccreditationID(c *gin.Context) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil || id <= 0 {
		return 0, invalidRequestError("invalid accreditation id", err)
	}
	return id, nil
}
