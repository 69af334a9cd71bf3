package workflow

import (
	"reflect"
	"testing"
	"time"
)

func sampleLedger() ([]LedgerEntry, []Assignment) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	entries := []LedgerEntry{
		{ID: 4, ReviewerEmail: "b@x", ReviewerName: "Bina", ReviewerRole: RoleDrcMember, Approved: false, Comments: "needs fix", StatusAtReview: StatusDrcMemberReview, CreatedAt: base.Add(3 * time.Hour)},
		{ID: 1, ReviewerEmail: testSupervisor, ReviewerName: "Prof. S", ReviewerRole: RoleSupervisor, Approved: true, StatusAtReview: StatusDraft, CreatedAt: base},
		{ID: 3, ReviewerEmail: "a@x", ReviewerRole: RoleDrcMember, Approved: true, StatusAtReview: StatusDrcMemberReview, CreatedAt: base.Add(2 * time.Hour)},
		{ID: 2, ReviewerEmail: testConvener, ReviewerName: "Dr. C", ReviewerRole: RoleDrcConvener, Approved: true, StatusAtReview: StatusDrcConvenerReview, CreatedAt: base.Add(time.Hour)},
		{ID: 5, ReviewerEmail: testHod, ReviewerName: "Dr. H", ReviewerRole: RoleHod, Approved: true, StatusAtReview: StatusHodReview, CreatedAt: base.Add(3 * time.Hour)},
	}
	assignments := []Assignment{
		{MemberEmail: "a@x", Status: AssignmentApproved},
		{MemberEmail: "b@x", Status: AssignmentReverted},
	}
	return entries, assignments
}

func TestDisplayLedger_Labels(t *testing.T) {
	entries, assignments := sampleLedger()

	lines := DisplayLedger(entries, assignments, StatusCompleted, false)
	got := make([]string, 0, len(lines))
	for _, l := range lines {
		got = append(got, l.Label)
	}
	want := []string{"Supervisor", "DRC Convener (Dr. C)", "DRC Member 1", "DRC Member 2", "HOD (Dr. H)"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("标签不符\n期望 %v\n实际 %v", want, got)
	}
	if lines[2].ReviewerName != "a@x" {
		t.Errorf("无姓名时应回退为邮箱，实际 %q", lines[2].ReviewerName)
	}
}

func TestDisplayLedger_HidesMembersFromStudent(t *testing.T) {
	entries, assignments := sampleLedger()

	lines := DisplayLedger(entries, assignments, StatusDrcConvenerReview, true)
	for _, l := range lines {
		if l.Role == RoleDrcMember && (l.ReviewerEmail != "" || l.ReviewerName != "") {
			t.Errorf("学生不应看到 DRC 成员身份: %+v", l)
		}
		if l.Role == RoleHod && l.ReviewerName == "" {
			t.Error("其他角色姓名不应隐藏")
		}
	}

	lines = DisplayLedger(entries, assignments, StatusHodReview, true)
	if lines[3].ReviewerName != "Bina" {
		t.Errorf("越过成员阶段后学生可见姓名，实际 %q", lines[3].ReviewerName)
	}

	lines = DisplayLedger(entries, assignments, StatusDrcConvenerReview, false)
	if lines[3].ReviewerEmail != "b@x" {
		t.Error("非学生查看时不应隐藏")
	}
}

func TestDisplayLedger_Deterministic(t *testing.T) {
	entries, assignments := sampleLedger()
	first := DisplayLedger(entries, assignments, StatusHodReview, false)

	reversed := make([]LedgerEntry, len(entries))
	for i, e := range entries {
		reversed[len(entries)-1-i] = e
	}
	second := DisplayLedger(reversed, assignments, StatusHodReview, false)
	if !reflect.DeepEqual(first, second) {
		t.Error("相同输入的展示结果应一致")
	}
	// 同一时刻按 ID 排序
	if first[3].ID != 4 || first[4].ID != 5 {
		t.Errorf("同时间戳应按 ID 排序，实际 %d, %d", first[3].ID, first[4].ID)
	}
	if len(entries) != 5 || entries[0].ID != 4 {
		t.Error("不应修改输入切片")
	}
}

func TestDisplayLedger_UnassignedMember(t *testing.T) {
	entries := []LedgerEntry{{ID: 1, ReviewerEmail: "old@x", ReviewerRole: RoleDrcMember, CreatedAt: time.Now()}}
	lines := DisplayLedger(entries, nil, StatusCompleted, false)
	if lines[0].Label != "DRC Member" {
		t.Errorf("未记录编号且不在本轮的成员应使用通用标签，实际 %q", lines[0].Label)
	}
}

func TestDisplayLedger_RecordedPositionSurvivesNewRound(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	entries := []LedgerEntry{
		{ID: 1, ReviewerEmail: "a@x", ReviewerRole: RoleDrcMember, MemberPosition: 1, CreatedAt: base},
		{ID: 2, ReviewerEmail: "b@x", ReviewerRole: RoleDrcMember, MemberPosition: 2, CreatedAt: base.Add(time.Minute)},
		{ID: 3, ReviewerEmail: "c@x", ReviewerRole: RoleDrcMember, MemberPosition: 1, CreatedAt: base.Add(time.Hour)},
	}
	// 召集人重新分配后本轮只有 c@x
	current := []Assignment{{MemberEmail: "c@x", Status: AssignmentApproved}}

	lines := DisplayLedger(entries, current, StatusCompleted, false)
	want := []string{"DRC Member 1", "DRC Member 2", "DRC Member 1"}
	for i, l := range lines {
		if l.Label != want[i] {
			t.Errorf("第 %d 行期望 %q，实际 %q", i, want[i], l.Label)
		}
	}
}
