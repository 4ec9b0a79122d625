package interaction

// StrengthMatrix 是稀疏的 user×item 交互强度矩阵。
// 用户与物品顺序均为在日志中首次出现的顺序，强度为 0 的格子不保存。
// 权重为 0 的事件（默认的 shown）不登记用户与物品。
type StrengthMatrix struct {
	Users []string
	Items []string

	cells     map[string]map[string]float64
	itemIndex map[string]int
}

// Get 返回 (user, item) 的强度，不存在时为 0。
func (m *StrengthMatrix) Get(user, item string) float64 {
	return m.cells[user][item]
}

// Row 返回用户的非零强度，调用方不得修改。
func (m *StrengthMatrix) Row(user string) map[string]float64 {
	return m.cells[user]
}

// ItemIndex 返回物品在矩阵中的列号。
func (m *StrengthMatrix) ItemIndex(item string) (int, bool) {
	i, ok := m.itemIndex[item]
	return i, ok
}

// NNZ 返回非零格子数。
func (m *StrengthMatrix) NNZ() int {
	n := 0
	for _, row := range m.cells {
		n += len(row)
	}
	return n
}

// StrengthMatrix 由当前日志按权重累加得到，每次调用重新构建。
func (s *Store) StrengthMatrix() *StrengthMatrix {
	s.mu.RLock()
	events := s.events
	w := s.weights
	s.mu.RUnlock()

	m := &StrengthMatrix{
		cells:     make(map[string]map[string]float64),
		itemIndex: make(map[string]int),
	}
	seenUser := make(map[string]struct{})
	for _, ev := range events {
		weight := w.Of(ev.Type)
		if weight == 0 {
			continue
		}
		if _, ok := seenUser[ev.UserID]; !ok {
			seenUser[ev.UserID] = struct{}{}
			m.Users = append(m.Users, ev.UserID)
		}
		if _, ok := m.itemIndex[ev.ItemID]; !ok {
			m.itemIndex[ev.ItemID] = len(m.Items)
			m.Items = append(m.Items, ev.ItemID)
		}
		row, ok := m.cells[ev.UserID]
		if !ok {
			row = make(map[string]float64)
			m.cells[ev.UserID] = row
		}
		row[ev.ItemID] += weight
	}
	for u, row := range m.cells {
		for item, v := range row {
			if v == 0 {
				delete(row, item)
			}
		}
		if len(row) == 0 {
			delete(m.cells, u)
		}
	}
	return m
}
