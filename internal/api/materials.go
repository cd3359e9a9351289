package api

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"affiliate-portal/internal/common/errors"
	"affiliate-portal/internal/common/metrics"
	"affiliate-portal/internal/models"
	"affiliate-portal/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidMaterialType = "Невалиден тип материал"

// parseMaterialType accepts an empty value as "all types".
func parseMaterialType(raw string) (models.MaterialType, error) {
	typ := models.MaterialType(raw)
	if typ != "" && !typ.Valid() {
		return "", errors.NewValidationError(msgInvalidMaterialType, "type: "+raw)
	}
	return typ, nil
}

func (s *Server) listMaterials(c *gin.Context) {
	typ, err := parseMaterialType(c.Query("type"))
	if err != nil {
		respondError(c, s.logger, err)
		return
	}

	materials, err := s.materials.ListActiveMaterials(c.Request.Context(), store.MaterialFilter{Type: typ})
	if err != nil {
		respondError(c, s.logger, storeError("affiliate_materials", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"materials": materials,
	})
}

func (s *Server) searchMaterials(c *gin.Context) {
	typ, err := parseMaterialType(c.Query("type"))
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	size, _ := strconv.Atoi(c.Query("size"))

	result, err := s.search.Search(c.Request.Context(), c.Query("q"), typ, size)
	if err != nil {
		metrics.SearchQueries.WithLabelValues("error").Inc()
		respondError(c, s.logger, searchError(s.cfg.Search.MaterialsIndex, err))
		return
	}
	metrics.SearchQueries.WithLabelValues("ok").Inc()

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"materials": result.Materials,
		"total":     result.TotalHits,
	})
}

func (s *Server) downloadMaterial(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		respondError(c, s.logger, errors.NewResourceNotFoundError("material", id))
		return
	}

	err := s.materials.IncrementMaterialDownload(c.Request.Context(), id)
	if stderrors.Is(err, store.ErrNotFound) {
		respondError(c, s.logger, errors.NewResourceNotFoundError("material", id))
		return
	}
	if err != nil {
		respondError(c, s.logger, storeError("affiliate_materials", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
