package controllers

import (
	"net/http"

	"oposiciones/models"
	"oposiciones/queries"
	"oposiciones/schemas"

	"github.com/gin-gonic/gin"
)

// GET /api/plans
func GetPlans(c *gin.Context) {
	db, ok := database(c)
	if !ok {
		return
	}
	plans, err := queries.ListPlans(db, true)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"plans": plans})
}

// GET /api/admin/plans
func AdminGetPlans(c *gin.Context) {
	db, ok := database(c)
	if !ok {
		return
	}
	plans, err := queries.ListPlans(db, false)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"plans": plans})
}

// GET /api/plans/:id
func GetPlanByID(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	db, ok := database(c)
	if !ok {
		return
	}
	plan, err := queries.GetPlan(db, id)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"plan": plan})
}

// POST /api/admin/plans
func CreatePlan(c *gin.Context) {
	plan := models.Plan{IsActive: true}
	if err := c.ShouldBindJSON(&plan); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	db, ok := database(c)
	if !ok {
		return
	}
	created, err := queries.CreatePlan(db, plan)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondCreated(c, gin.H{"plan": created})
}

// PUT /api/admin/plans/:id
func UpdatePlan(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	// negative sentinels keep the stored numbers when the field is omitted
	body := models.Plan{PriceCents: -1, MonthlyTestLimit: -1, DailyAIChatLimit: -1, IsActive: true}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	db, ok := database(c)
	if !ok {
		return
	}
	plan, err := queries.UpdatePlan(db, id, body)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"plan": plan})
}

// DELETE /api/admin/plans/:id
func DeletePlan(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	db, ok := database(c)
	if !ok {
		return
	}
	if err := queries.DeletePlan(db, id); err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"deleted": id})
}

// POST /api/admin/users/:id/plan
func AssignUserPlan(c *gin.Context) {
	userID, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var req schemas.AssignPlanRequest
	if !BindJSON(c, &req) {
		return
	}
	db, ok := database(c)
	if !ok {
		return
	}
	link, err := queries.AssignPlan(db, userID, req.PlanID, req.ExpiresAt)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"user_plan": link})
}
