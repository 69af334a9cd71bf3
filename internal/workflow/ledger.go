package workflow

import (
	"fmt"
	"sort"
	"time"
)

// LedgerEntry 评审台账中的一条记录（只读）
type LedgerEntry struct {
	ID             uint
	ReviewerEmail  string
	ReviewerName   string
	ReviewerRole   Role
	Approved       bool
	Comments       string
	StatusAtReview Status
	// MemberPosition 评审时该成员在其所属轮次中的编号，0 表示未记录
	MemberPosition int
	CreatedAt      time.Time
}

// LedgerLine 面向展示的台账行
type LedgerLine struct {
	ID             uint      `json:"id"`
	Label          string    `json:"label"`
	ReviewerEmail  string    `json:"reviewer_email,omitempty"`
	ReviewerName   string    `json:"reviewer_name,omitempty"`
	Role           Role      `json:"role"`
	Approved       bool      `json:"approved"`
	Comments       string    `json:"comments"`
	StatusAtReview Status    `json:"status_at_review"`
	CreatedAt      time.Time `json:"created_at"`
}

// DisplayLedger 为台账生成展示标签
//
// DRC 成员优先使用评审时记录的轮次编号，未记录时按本轮分配中的位置编号（DRC Member 1..N）。
// 学生查看时，在申请越过 DRC 成员阶段之前不显示成员身份。
func DisplayLedger(entries []LedgerEntry, assignments []Assignment, status Status, viewerIsStudent bool) []LedgerLine {
	position := make(map[string]int, len(assignments))
	for i, a := range assignments {
		position[normalizeEmail(a.MemberEmail)] = i + 1
	}
	hideMembers := !MemberIdentityVisible(status, viewerIsStudent)

	sorted := append([]LedgerEntry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	lines := make([]LedgerLine, 0, len(sorted))
	for _, e := range sorted {
		name := e.ReviewerName
		if name == "" {
			name = e.ReviewerEmail
		}
		line := LedgerLine{
			ID:             e.ID,
			ReviewerEmail:  e.ReviewerEmail,
			ReviewerName:   name,
			Role:           e.ReviewerRole,
			Approved:       e.Approved,
			Comments:       e.Comments,
			StatusAtReview: e.StatusAtReview,
			CreatedAt:      e.CreatedAt,
		}

		switch e.ReviewerRole {
		case RoleDrcMember:
			n, ok := e.MemberPosition, e.MemberPosition > 0
			if !ok {
				n, ok = position[normalizeEmail(e.ReviewerEmail)]
			}
			if ok {
				line.Label = fmt.Sprintf("DRC Member %d", n)
			} else {
				line.Label = RoleDrcMember.Label()
			}
			if hideMembers {
				line.ReviewerEmail = ""
				line.ReviewerName = ""
			}
		case RoleStudent, RoleSupervisor:
			line.Label = e.ReviewerRole.Label()
		default:
			line.Label = fmt.Sprintf("%s (%s)", e.ReviewerRole.Label(), name)
		}
		lines = append(lines, line)
	}
	return lines
}

// MemberIdentityVisible 查看者能否看到 DRC 成员身份
// 学生只有在申请越过 DRC 成员阶段之后才能看到
func MemberIdentityVisible(status Status, viewerIsStudent bool) bool {
	if !viewerIsStudent {
		return true
	}
	switch status {
	case StatusDrcApproved, StatusHodReview, StatusCompleted:
		return true
	}
	return false
}
