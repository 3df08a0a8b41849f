package server

import (
	"net/http"

	"taskboard/internal/domain/models"

	"github.com/gin-gonic/gin"
)

func (api *TaskAPI) signup(ctx *gin.Context) {
	var req models.SignupRequest
	if !bindJSON(ctx, &req) {
		return
	}
	user, err := api.auth.Signup(ctx.Request.Context(), req)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Signup successful! OTP sent to your email. Please verify.",
		"user":    user,
	})
}

func (api *TaskAPI) verifyOTP(ctx *gin.Context) {
	var req models.VerifyOTPRequest
	if !bindJSON(ctx, &req) {
		return
	}
	user, err := api.auth.VerifyOTP(ctx.Request.Context(), req)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "OTP verified!", "user": user})
}

func (api *TaskAPI) resendOTP(ctx *gin.Context) {
	var req models.EmailRequest
	if !bindJSON(ctx, &req) {
		return
	}
	if err := api.auth.ResendOTP(ctx.Request.Context(), req); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "OTP resent to email"})
}

func (api *TaskAPI) login(ctx *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(ctx, &req) {
		return
	}
	user, err := api.auth.Login(ctx.Request.Context(), req)
	if err != nil {
		writeError(ctx, err)
		return
	}
	token, err := api.tokens.Issue(user.ID)
	if err != nil {
		writeError(ctx, err)
		return
	}
	api.tokens.setCookie(ctx, token)
	ctx.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    user,
		"token":   token,
	})
}

func (api *TaskAPI) logout(ctx *gin.Context) {
	clearCookie(ctx)
	ctx.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (api *TaskAPI) forgotPassword(ctx *gin.Context) {
	var req models.EmailRequest
	if !bindJSON(ctx, &req) {
		return
	}
	if err := api.auth.RequestPasswordReset(ctx.Request.Context(), req); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "If that email exists, reset instructions sent"})
}

func (api *TaskAPI) resetPasswordForgot(ctx *gin.Context) {
	var req models.ResetPasswordForgotRequest
	if !bindJSON(ctx, &req) {
		return
	}
	if err := api.auth.ResetPasswordWithOTP(ctx.Request.Context(), req); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Password reset successfully and email sent."})
}

func (api *TaskAPI) changePassword(ctx *gin.Context) {
	var req models.ChangePasswordRequest
	if !bindJSON(ctx, &req) {
		return
	}
	if err := api.auth.ChangePassword(ctx.Request.Context(), callerID(ctx), req); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Password reset success and email sent."})
}

func (api *TaskAPI) requestStepUpOTP(ctx *gin.Context) {
	if err := api.auth.RequestStepUpOTP(ctx.Request.Context(), callerID(ctx)); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "OTP sent to your email for password reset"})
}

func (api *TaskAPI) changePasswordWithOTP(ctx *gin.Context) {
	var req models.ChangePasswordOTPRequest
	if !bindJSON(ctx, &req) {
		return
	}
	if err := api.auth.ChangePasswordWithOTP(ctx.Request.Context(), callerID(ctx), req); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Password reset successfully and email sent."})
}

func (api *TaskAPI) me(ctx *gin.Context) {
	user, err := api.auth.GetUser(ctx.Request.Context(), callerID(ctx))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"user": user})
}

func (api *TaskAPI) updateProfile(ctx *gin.Context) {
	var req models.UpdateProfileRequest
	if !bindJSON(ctx, &req) {
		return
	}
	user, err := api.auth.UpdateProfile(ctx.Request.Context(), callerID(ctx), req)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Profile updated", "user": user})
}

func (api *TaskAPI) listUsers(ctx *gin.Context) {
	users, err := api.auth.ListUsers(ctx.Request.Context(), callerID(ctx))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"users": users})
}
