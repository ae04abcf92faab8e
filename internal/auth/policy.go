package auth

import (
	"fmt"

	"github.com/tgienger/teamboard/internal/models"
)

// Require returns ErrForbidden wrapped with action when ok is false
func Require(ok bool, action string) error {
	if ok {
		return nil
	}
	return fmt.Errorf("%w: not allowed to %s", ErrForbidden, action)
}

// OwnsProject reports whether user owns project
func OwnsProject(user *models.User, project *models.Project) bool {
	return project.OwnerID == user.ID
}

// CanManageTeam reports whether user may change a project's members
func CanManageTeam(user *models.User, project *models.Project) bool {
	return OwnsProject(user, project) || user.IsAdmin()
}

// CanAccessTask reports whether user may read and edit task: the project owner or an assignee
func CanAccessTask(user *models.User, project *models.Project, task *models.Task) bool {
	return OwnsProject(user, project) || task.HasAssignee(user.ID)
}

// CanMoveTask reports whether user may move task into status. Only the project
// owner may place a task in done, reorders within the done column included.
func CanMoveTask(user *models.User, project *models.Project, task *models.Task, status models.TaskStatus) bool {
	if status == models.StatusDone {
		return OwnsProject(user, project)
	}
	return CanAccessTask(user, project, task)
}

// CheckMove returns ErrForbidden unless user may move task into status
func CheckMove(user *models.User, project *models.Project, task *models.Task, status models.TaskStatus) error {
	if err := Require(CanAccessTask(user, project, task), "move this task"); err != nil {
		return err
	}
	return Require(CanMoveTask(user, project, task, status), "move this task to "+status.Label())
}

// CanWorkOnTask reports whether user may contribute to task: owner, assignee or admin
func CanWorkOnTask(user *models.User, project *models.Project, task *models.Task) bool {
	return CanAccessTask(user, project, task) || user.IsAdmin()
}

// CanComment reports whether user may write comments on task
func CanComment(user *models.User, project *models.Project, task *models.Task) bool {
	return CanWorkOnTask(user, project, task)
}

// CanEditComment reports whether user may edit comment
func CanEditComment(user *models.User, project *models.Project, task *models.Task, comment *models.Comment) bool {
	return comment.UserID == user.ID || CanComment(user, project, task)
}

// CanDeleteComment reports whether user may delete comment
func CanDeleteComment(user *models.User, project *models.Project, task *models.Task, comment *models.Comment) bool {
	return comment.UserID == user.ID || CanAccessTask(user, project, task)
}

// CanDeleteThread reports whether user may delete a discussion message
func CanDeleteThread(user *models.User, project *models.Project, thread *models.Thread) bool {
	return thread.UserID == user.ID || OwnsProject(user, project)
}

// CanAccessPersonal reports whether user may read or change a personal record
// (work log, note, to-do) owned by ownerID
func CanAccessPersonal(user *models.User, ownerID int64) bool {
	return ownerID == user.ID || user.IsAdmin()
}

// CanAccessWorkLog reports whether user may read or change a work log
func CanAccessWorkLog(user *models.User, wl *models.WorkLog) bool {
	return CanAccessPersonal(user, wl.OwnerID)
}
