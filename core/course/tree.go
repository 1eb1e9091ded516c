package course

import "sort"

// Tree is the nested view of a course, derived on read from the flat tables.
type Tree struct {
	Course
	DescriptionHTML string     `json:"description_html"`
	Units           []UnitNode `json:"units"`
}

type UnitNode struct {
	Unit
	Topics []TopicNode `json:"topics"`
}

type TopicNode struct {
	Topic
	Contents []ContentItem `json:"contents"`
}

// Hierarchy holds every unit, topic and content item of a course.
type Hierarchy struct {
	Units    []Unit
	Topics   []Topic
	Contents []ContentItem
}

// BuildTree nests the hierarchy of c under it, ordering children by (order, id).
// When publishedOnly is set, unpublished nodes are dropped along with their descendants.
func BuildTree(c Course, h Hierarchy, publishedOnly bool) Tree {
	topicsByUnit := make(map[string][]Topic)
	for _, t := range h.Topics {
		topicsByUnit[t.UnitID] = append(topicsByUnit[t.UnitID], t)
	}
	contentsByTopic := make(map[string][]ContentItem)
	for _, ci := range h.Contents {
		contentsByTopic[ci.TopicID] = append(contentsByTopic[ci.TopicID], ci)
	}

	units := append([]Unit(nil), h.Units...)
	sort.SliceStable(units, func(i, j int) bool { return less(units[i].Order, units[j].Order, units[i].ID, units[j].ID) })

	tree := Tree{Course: c, Units: make([]UnitNode, 0, len(units))}
	for _, u := range units {
		if u.CourseID != c.ID || (publishedOnly && !u.IsPublished) {
			continue
		}
		topics := topicsByUnit[u.ID]
		sort.SliceStable(topics, func(i, j int) bool { return less(topics[i].Order, topics[j].Order, topics[i].ID, topics[j].ID) })

		un := UnitNode{Unit: u, Topics: make([]TopicNode, 0, len(topics))}
		for _, t := range topics {
			if publishedOnly && !t.IsPublished {
				continue
			}
			contents := contentsByTopic[t.ID]
			sort.SliceStable(contents, func(i, j int) bool {
				return less(contents[i].Order, contents[j].Order, contents[i].ID, contents[j].ID)
			})

			tn := TopicNode{Topic: t, Contents: make([]ContentItem, 0, len(contents))}
			for _, ci := range contents {
				if publishedOnly && !ci.IsPublished {
					continue
				}
				tn.Contents = append(tn.Contents, ci)
			}
			un.Topics = append(un.Topics, tn)
		}
		tree.Units = append(tree.Units, un)
	}
	return tree
}

func less(o1, o2 int, id1, id2 string) bool {
	if o1 != o2 {
		return o1 < o2
	}
	if len(id1) != len(id2) { // CNT9 < CNT10
		return len(id1) < len(id2)
	}
	return id1 < id2
}

// Count returns the number of units, topics and content items in the tree.
func (t Tree) Count() (units, topics, contents int) {
	for _, u := range t.Units {
		units++
		for _, tn := range u.Topics {
			topics++
			contents += len(tn.Contents)
		}
	}
	return
}
