package memory

import (
	"strings"

	"github.com/civic-desk/complaint-service/internal/domain"
)

// The HTTP layer hands over strings that alias fiber's pooled request
// buffers. Everything retained by the store is copied first.

func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	out := strings.Clone(*s)
	return &out
}

func detachComplaint(c domain.Complaint) domain.Complaint {
	c.ID = strings.Clone(c.ID)
	c.UserID = strings.Clone(c.UserID)
	c.OwnerName = strings.Clone(c.OwnerName)
	c.DepartmentID = strings.Clone(c.DepartmentID)
	c.DepartmentName = strings.Clone(c.DepartmentName)
	c.Title = strings.Clone(c.Title)
	c.Description = strings.Clone(c.Description)
	c.Location = cloneStringPtr(c.Location)
	c.District = strings.Clone(c.District)
	c.Subcategory = strings.Clone(c.Subcategory)
	c.AdminResponse = cloneStringPtr(c.AdminResponse)
	c.ImagePath = cloneStringPtr(c.ImagePath)
	c.VoicePath = cloneStringPtr(c.VoicePath)
	c.UpdatedBy = cloneStringPtr(c.UpdatedBy)
	return c
}

func detachHistory(h domain.StatusHistory) domain.StatusHistory {
	h.ID = strings.Clone(h.ID)
	h.ComplaintID = strings.Clone(h.ComplaintID)
	h.ChangedBy = strings.Clone(h.ChangedBy)
	h.Note = strings.Clone(h.Note)
	if h.OldStatus != nil {
		old := domain.ComplaintStatus(strings.Clone(string(*h.OldStatus)))
		h.OldStatus = &old
	}
	return h
}

func detachMessage(m domain.ComplaintMessage) domain.ComplaintMessage {
	m.ID = strings.Clone(m.ID)
	m.ComplaintID = strings.Clone(m.ComplaintID)
	m.SenderID = strings.Clone(m.SenderID)
	m.SenderName = strings.Clone(m.SenderName)
	m.Body = strings.Clone(m.Body)
	return m
}

func detachDepartment(d domain.Department) domain.Department {
	d.ID = strings.Clone(d.ID)
	d.Name = strings.Clone(d.Name)
	d.Description = strings.Clone(d.Description)
	return d
}

func detachUser(u domain.User) domain.User {
	u.ID = strings.Clone(u.ID)
	u.Name = strings.Clone(u.Name)
	u.Email = strings.Clone(u.Email)
	u.PasswordHash = strings.Clone(u.PasswordHash)
	u.Phone = cloneStringPtr(u.Phone)
	u.Address = cloneStringPtr(u.Address)
	u.Gender = cloneStringPtr(u.Gender)
	u.ProfilePicture = cloneStringPtr(u.ProfilePicture)
	u.DepartmentID = cloneStringPtr(u.DepartmentID)
	if u.Age != nil {
		age := *u.Age
		u.Age = &age
	}
	return u
}

func detachToken(t domain.PasswordResetToken) domain.PasswordResetToken {
	t.ID = strings.Clone(t.ID)
	t.UserID = strings.Clone(t.UserID)
	t.Token = strings.Clone(t.Token)
	if t.UsedAt != nil {
		used := *t.UsedAt
		t.UsedAt = &used
	}
	return t
}
