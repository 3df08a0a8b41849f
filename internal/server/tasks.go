package server

import (
	"io"
	"net/http"

	"taskboard/internal/domain/errors"
	"taskboard/internal/domain/models"

	"github.com/gin-gonic/gin"
)

// bindStatus reads an optional {"status": ...} body; an empty body means "toggle".
// Chunked and decompressed bodies have no known length, so emptiness is detected on decode.
func bindStatus(ctx *gin.Context) (string, bool) {
	var req models.StatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return "", true
		}
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return "", false
	}
	return req.Status, true
}

func (api *TaskAPI) createTask(ctx *gin.Context) {
	var req models.CreateTaskRequest
	if !bindJSON(ctx, &req) {
		return
	}
	task, err := api.tasks.CreateTask(ctx.Request.Context(), callerID(ctx), req)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"message": "Task created successfully", "task": task})
}

func (api *TaskAPI) getTask(ctx *gin.Context) {
	task, err := api.tasks.GetTask(ctx.Request.Context(), callerID(ctx), ctx.Param("taskID"))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"task": task})
}

func (api *TaskAPI) tasksAssignedToMe(ctx *gin.Context) {
	var filter models.TaskListFilter
	if err := ctx.ShouldBindQuery(&filter); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})
		return
	}
	tasks, err := api.tasks.ListTasksToMe(ctx.Request.Context(), callerID(ctx), filter)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"count": len(tasks), "tasks": tasks})
}

func (api *TaskAPI) tasksAssignedByMe(ctx *gin.Context) {
	var filter models.TaskListFilter
	if err := ctx.ShouldBindQuery(&filter); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})
		return
	}
	tasks, err := api.tasks.ListTasksByMe(ctx.Request.Context(), callerID(ctx), filter)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"count": len(tasks), "tasks": tasks})
}

func (api *TaskAPI) dashboardStats(ctx *gin.Context) {
	stats, err := api.tasks.Dashboard(ctx.Request.Context(), callerID(ctx))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (api *TaskAPI) updateTask(ctx *gin.Context) {
	var req models.UpdateTaskRequest
	if !bindJSON(ctx, &req) {
		return
	}
	task, err := api.tasks.UpdateTask(ctx.Request.Context(), callerID(ctx), ctx.Param("taskID"), req)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Task updated successfully", "task": task})
}

func (api *TaskAPI) toggleTaskStatus(ctx *gin.Context) {
	status, ok := bindStatus(ctx)
	if !ok {
		return
	}
	task, err := api.tasks.ToggleTaskStatus(ctx.Request.Context(), callerID(ctx), ctx.Param("taskID"), status)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Task status updated", "task": task})
}

func (api *TaskAPI) deleteTask(ctx *gin.Context) {
	if err := api.tasks.DeleteTask(ctx.Request.Context(), callerID(ctx), ctx.Param("taskID")); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

func (api *TaskAPI) createSubTask(ctx *gin.Context) {
	var req models.CreateSubTaskRequest
	if !bindJSON(ctx, &req) {
		return
	}
	sub, err := api.tasks.CreateSubTask(ctx.Request.Context(), callerID(ctx), ctx.Param("taskID"), req)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"message": "Sub-task created successfully", "subTask": sub})
}

func (api *TaskAPI) listSubTasks(ctx *gin.Context) {
	subs, err := api.tasks.ListSubTasks(ctx.Request.Context(), callerID(ctx), ctx.Param("taskID"))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"count": len(subs), "subTasks": subs})
}

func (api *TaskAPI) updateSubTask(ctx *gin.Context) {
	var req models.UpdateSubTaskRequest
	if !bindJSON(ctx, &req) {
		return
	}
	sub, err := api.tasks.UpdateSubTask(ctx.Request.Context(), callerID(ctx), ctx.Param("subTaskID"), req)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Sub-task updated successfully", "subTask": sub})
}

func (api *TaskAPI) toggleSubTaskStatus(ctx *gin.Context) {
	status, ok := bindStatus(ctx)
	if !ok {
		return
	}
	sub, err := api.tasks.ToggleSubTaskStatus(ctx.Request.Context(), callerID(ctx), ctx.Param("subTaskID"), status)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Sub-task status updated", "subTask": sub})
}

func (api *TaskAPI) deleteSubTask(ctx *gin.Context) {
	if err := api.tasks.DeleteSubTask(ctx.Request.Context(), callerID(ctx), ctx.Param("subTaskID")); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Sub-task deleted successfully"})
}
