package workflow

import (
	"strings"
	"testing"
)

func TestCompletionEvent(t *testing.T) {
	got := CompletionEvent(PhdRequest, StageDrcConvenerReview, 42)
	if got != "phd-request:drc-convener-review:42" {
		t.Errorf("实际 %s", got)
	}
}

func TestDefinition_Lookup(t *testing.T) {
	if d, ok := Lookup(PhdProposal); !ok || d.Submitter != RoleStudent {
		t.Error("proposal 提交人应为学生")
	}
	if d, ok := Lookup(PhdRequest); !ok || d.Submitter != RoleSupervisor {
		t.Error("request 提交人应为导师")
	}
	if _, ok := Lookup("phd-qualifier"); ok {
		t.Error("未知流程应返回 false")
	}
}

func TestDefinition_EveryNonTerminalStatusCanMove(t *testing.T) {
	for _, d := range []*Definition{RequestDefinition(), ProposalDefinition()} {
		for s := range d.rank {
			if s.IsTerminal() {
				continue
			}
			if d.Name == PhdRequest && s == StatusDraft {
				continue
			}
			if len(d.Actions(s)) == 0 {
				t.Errorf("%s: 状态 %s 没有出边", d.Name, s)
			}
		}
	}
}

func TestDefinition_EdgesTargetRankedStatuses(t *testing.T) {
	for _, d := range []*Definition{RequestDefinition(), ProposalDefinition()} {
		for k, e := range d.edges {
			if _, ok := d.rank[k.from]; !ok {
				t.Errorf("%s: 源状态 %s 未定义阶段位置", d.Name, k.from)
			}
			if e.RestoreSnapshot {
				continue
			}
			if _, ok := d.rank[e.To]; !ok {
				t.Errorf("%s: %s/%s 目标 %s 未定义阶段位置", d.Name, k.from, k.action, e.To)
			}
		}
	}
}

func TestDefinition_Graph(t *testing.T) {
	lines := RequestDefinition().Graph()
	joined := strings.Join(lines, "\n")
	for _, want := range []string{
		"drc_convener_review --approve/drc_convener--> drc_approved | direct: hod_review",
		"drc_member_review --drc_member_review/drc_member--> drc_member_review (quorum) | drc_convener_review",
		"pending_edit_approval --reject_edit/drc_convener--> <status_before_edit_request>",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("转移图缺少 %q", want)
		}
	}
}

func TestDefinition_SourcesFilteredByRole(t *testing.T) {
	d := ProposalDefinition()
	all := d.Sources(ActionApprove, "")
	if len(all) != 3 {
		t.Fatalf("proposal 的 approve 应有 3 个源状态，实际 %v", all)
	}
	hod := d.Sources(ActionApprove, RoleHod)
	if len(hod) != 1 || hod[0] != StatusHodReview {
		t.Errorf("HOD approve 只应来自 hod_review，实际 %v", hod)
	}
}
