package graph

import (
	"reflect"
	"testing"

	"github.com/sieve-kg/sieve/pkg/common"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercases", "Brand Guidelines", "brand guidelines"},
		{"collapses whitespace", "brand   guidelines\n update", "brand guidelines update"},
		{"strips edge punctuation", "  \"Brand guidelines.\" ", "brand guidelines"},
		{"keeps inner punctuation", "ci/cd pipeline", "ci/cd pipeline"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeText(tt.input); got != tt.expected {
				t.Fatalf("NormalizeText(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNodeKey(t *testing.T) {
	key := NodeKey("Topic", "Brand  Guidelines.")
	if key != "topic:brand_guidelines" {
		t.Fatalf("unexpected node key %q", key)
	}
	if key != NodeKey("Topic", "brand guidelines") {
		t.Fatalf("expected identically-worded claims to share a key")
	}
}

func projectHypothesis(id, projectID, text string) common.Hypothesis {
	return common.Hypothesis{
		HypothesisID: id,
		ProjectID:    projectID,
		Kind:         common.KindProject,
		Text:         text,
		EvidenceIDs:  []string{"d1"},
	}
}

func TestApplyIdempotent(t *testing.T) {
	g := New()
	h := common.Hypothesis{
		HypothesisID: "h1",
		ProjectID:    "p1",
		Kind:         common.KindTopic,
		Text:         "Brand guidelines",
		EvidenceIDs:  []string{"d1", "d2"},
	}

	first, err := g.Apply(h)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !first.CreatedNode {
		t.Fatalf("expected first Apply to create the node")
	}

	second, err := g.Apply(h)
	if err != nil {
		t.Fatalf("second Apply failed: %v", err)
	}
	if second.CreatedNode {
		t.Fatalf("expected second Apply to merge, not create")
	}

	nodes := g.Nodes()
	if len(nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(nodes))
	}
	if !reflect.DeepEqual(nodes[0].EvidenceIDs, []string{"d1", "d2"}) {
		t.Fatalf("expected evidence without duplicates, got %v", nodes[0].EvidenceIDs)
	}
	if !reflect.DeepEqual(nodes[0].SourceHypothesisIDs, []string{"h1"}) {
		t.Fatalf("expected a single source entry, got %v", nodes[0].SourceHypothesisIDs)
	}
}

func TestApplyMergesRewordedDuplicate(t *testing.T) {
	g := New()
	if _, err := g.Apply(common.Hypothesis{
		HypothesisID: "h1", ProjectID: "p1", Kind: common.KindTopic,
		Text: "Brand Guidelines", EvidenceIDs: []string{"d1"},
	}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if _, err := g.Apply(common.Hypothesis{
		HypothesisID: "h2", ProjectID: "p1", Kind: common.KindTopic,
		Text: "  brand   guidelines. ", EvidenceIDs: []string{"d2"},
	}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	nodes := g.Nodes()
	if len(nodes) != 1 {
		t.Fatalf("expected 1 merged node, got %d", len(nodes))
	}
	if !reflect.DeepEqual(nodes[0].EvidenceIDs, []string{"d1", "d2"}) {
		t.Fatalf("expected merged evidence, got %v", nodes[0].EvidenceIDs)
	}
	if !reflect.DeepEqual(nodes[0].SourceHypothesisIDs, []string{"h1", "h2"}) {
		t.Fatalf("expected both sources, got %v", nodes[0].SourceHypothesisIDs)
	}
}

func TestApplyRejectsEmptyEvidence(t *testing.T) {
	g := New()
	_, err := g.Apply(common.Hypothesis{
		HypothesisID: "h1", ProjectID: "p1", Kind: common.KindTopic, Text: "topic",
	})
	if err == nil {
		t.Fatalf("expected error for hypothesis without evidence")
	}
	if len(g.Nodes()) != 0 {
		t.Fatalf("expected no node to be created")
	}
}

func TestEdgeDerivation(t *testing.T) {
	g := New()
	hypotheses := []common.Hypothesis{
		projectHypothesis("h1", "p1", "Website relaunch"),
		{HypothesisID: "h2", ProjectID: "p1", Kind: common.KindTopic, Text: "Brand guidelines", EvidenceIDs: []string{"d2"}},
		{HypothesisID: "h3", ProjectID: "p1", Kind: common.KindChallenge, Text: "Legacy CMS migration", EvidenceIDs: []string{"d3"}},
		{HypothesisID: "h4", ProjectID: "p1", Kind: common.KindResolution, Text: "Switched to static site", EvidenceIDs: []string{"d4"}, LinksTo: "h3"},
	}
	for _, h := range hypotheses {
		if _, err := g.Apply(h); err != nil {
			t.Fatalf("Apply(%s) failed: %v", h.HypothesisID, err)
		}
	}

	edges := g.Edges()
	if len(edges) != 3 {
		t.Fatalf("expected 3 edges, got %d: %+v", len(edges), edges)
	}

	byRelation := make(map[common.Relation]common.GraphEdge)
	for _, e := range edges {
		byRelation[e.Relation] = e
	}

	hasTopic := byRelation[common.RelationHasTopic]
	if hasTopic.FromNode != "project:website_relaunch" || hasTopic.ToNode != "topic:brand_guidelines" {
		t.Fatalf("unexpected HAS_TOPIC edge %+v", hasTopic)
	}
	faced := byRelation[common.RelationFacedChallenge]
	if faced.ToNode != "challenge:legacy_cms_migration" {
		t.Fatalf("unexpected FACED_CHALLENGE edge %+v", faced)
	}
	resolved := byRelation[common.RelationResolvedBy]
	if resolved.FromNode != "challenge:legacy_cms_migration" || resolved.ToNode != "resolution:switched_to_static_site" {
		t.Fatalf("unexpected RESOLVED_BY edge %+v", resolved)
	}
	if !reflect.DeepEqual(resolved.EvidenceIDs, []string{"d4"}) {
		t.Fatalf("expected edge to inherit hypothesis evidence, got %v", resolved.EvidenceIDs)
	}
}

func TestPartOfEdge(t *testing.T) {
	g := New()
	if _, err := g.Apply(projectHypothesis("h1", "p1", "Website relaunch")); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	sub := projectHypothesis("h2", "p2", "Relaunch CMS workstream")
	sub.LinksTo = "h1"
	if _, err := g.Apply(sub); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	edges := g.Edges()
	if len(edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(edges))
	}
	e := edges[0]
	if e.Relation != common.RelationPartOf {
		t.Fatalf("expected PART_OF, got %s", e.Relation)
	}
	if e.FromNode != "project:relaunch_cms_workstream" || e.ToNode != "project:website_relaunch" {
		t.Fatalf("unexpected PART_OF edge %+v", e)
	}
}

func TestOrderIndependence(t *testing.T) {
	hypotheses := []common.Hypothesis{
		projectHypothesis("h1", "p1", "Website relaunch"),
		{HypothesisID: "h2", ProjectID: "p1", Kind: common.KindTopic, Text: "Brand guidelines", EvidenceIDs: []string{"d2"}},
		{HypothesisID: "h3", ProjectID: "p1", Kind: common.KindChallenge, Text: "Legacy CMS migration", EvidenceIDs: []string{"d3"}},
		{HypothesisID: "h4", ProjectID: "p1", Kind: common.KindResolution, Text: "Switched to static site", EvidenceIDs: []string{"d4"}, LinksTo: "h3"},
	}

	forward := New()
	for _, h := range hypotheses {
		if _, err := forward.Apply(h); err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
	}

	reversed := New()
	for i := len(hypotheses) - 1; i >= 0; i-- {
		if _, err := reversed.Apply(hypotheses[i]); err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
	}

	if !reflect.DeepEqual(forward.Nodes(), reversed.Nodes()) {
		t.Fatalf("nodes differ by application order:\n%+v\n%+v", forward.Nodes(), reversed.Nodes())
	}
	if !reflect.DeepEqual(forward.Edges(), reversed.Edges()) {
		t.Fatalf("edges differ by application order:\n%+v\n%+v", forward.Edges(), reversed.Edges())
	}
	if len(forward.Dangling()) != 0 || len(reversed.Dangling()) != 0 {
		t.Fatalf("expected no dangling links in either order")
	}
}

func TestOrderIndependenceDuplicateProject(t *testing.T) {
	hypotheses := []common.Hypothesis{
		projectHypothesis("h1", "p1", "Website relaunch"),
		projectHypothesis("h2", "p1", "Website relaunch phase two"),
		{HypothesisID: "h3", ProjectID: "p1", Kind: common.KindTopic, Text: "Brand guidelines", EvidenceIDs: []string{"d2"}},
	}

	forward := New()
	for _, h := range hypotheses {
		if _, err := forward.Apply(h); err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
	}

	reversed := New()
	for i := len(hypotheses) - 1; i >= 0; i-- {
		if _, err := reversed.Apply(hypotheses[i]); err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
	}

	if !reflect.DeepEqual(forward.Edges(), reversed.Edges()) {
		t.Fatalf("edges differ by application order:\n%+v\n%+v", forward.Edges(), reversed.Edges())
	}

	edges := forward.Edges()
	if len(edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(edges))
	}
	if edges[0].FromNode != "project:website_relaunch" {
		t.Fatalf("expected the topic to attach to the least project node, got %+v", edges[0])
	}
}

func TestDanglingLinksTo(t *testing.T) {
	g := New()
	if _, err := g.Apply(common.Hypothesis{
		HypothesisID: "h1", ProjectID: "p1", Kind: common.KindResolution,
		Text: "Switched to static site", EvidenceIDs: []string{"d1"}, LinksTo: "h99",
	}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if len(g.Nodes()) != 1 {
		t.Fatalf("expected the resolution node to still be created")
	}
	if len(g.Edges()) != 0 {
		t.Fatalf("expected no edges for a dangling reference")
	}

	dangling := g.Dangling()
	if len(dangling) != 1 {
		t.Fatalf("expected 1 dangling link, got %d", len(dangling))
	}
	if dangling[0].Reference != "h99" || dangling[0].Relation != common.RelationResolvedBy {
		t.Fatalf("unexpected dangling link %+v", dangling[0])
	}
}

func TestProjectPhase(t *testing.T) {
	g := New()
	h := projectHypothesis("h1", "p1", "Website relaunch")
	h.Phase = "execution"
	if _, err := g.Apply(h); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	nodes := g.Nodes()
	if nodes[0].Phase != "execution" {
		t.Fatalf("expected phase to carry over, got %q", nodes[0].Phase)
	}
}

func TestExportStats(t *testing.T) {
	g := New()
	if _, err := g.Apply(projectHypothesis("h1", "p1", "Website relaunch")); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if _, err := g.Apply(common.Hypothesis{
		HypothesisID: "h2", ProjectID: "p1", Kind: common.KindTopic,
		Text: "Brand guidelines", EvidenceIDs: []string{"d2"},
	}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	export := g.Export()
	if export.Stats.NodeCount != 2 || export.Stats.EdgeCount != 1 {
		t.Fatalf("unexpected stats %+v", export.Stats)
	}
	if export.Stats.NodesByKind["Topic"] != 1 || export.Stats.NodesByKind["Project"] != 1 {
		t.Fatalf("unexpected kind counts %+v", export.Stats.NodesByKind)
	}
	if export.Stats.EdgesByRelation["HAS_TOPIC"] != 1 {
		t.Fatalf("unexpected relation counts %+v", export.Stats.EdgesByRelation)
	}
}
