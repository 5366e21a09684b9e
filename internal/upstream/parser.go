package upstream

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// 上游页面把房间状态渲染成两张HTML表格。
// 列名出现在thead中，顺序不保证稳定，所以按表头名字索引单元格。

const (
	checksTableSelector = "table#checks-table"
	hintsTableSelector  = "table#hints-table"
)

// ParseRoomHTML 将上游追踪页面的HTML解析为槽位和提示记录。
func ParseRoomHTML(html string) ([]SlotRecord, []HintRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil, fmt.Errorf("无法解析上游页面HTML: %w", err)
	}

	checkRows, err := parseTable(doc, checksTableSelector, "checks")
	if err != nil {
		return nil, nil, err
	}
	hintRows, err := parseTable(doc, hintsTableSelector, "hints")
	if err != nil {
		return nil, nil, err
	}

	slots := make([]SlotRecord, 0, len(checkRows))
	for i, row := range checkRows {
		slot, err := slotFromRow(row)
		if err != nil {
			return nil, nil, fmt.Errorf("checks表第%d行: %w", i+1, err)
		}
		slots = append(slots, slot)
	}

	hints := make([]HintRecord, 0, len(hintRows))
	for i, row := range hintRows {
		hint, err := hintFromRow(row)
		if err != nil {
			return nil, nil, fmt.Errorf("hints表第%d行: %w", i+1, err)
		}
		hints = append(hints, hint)
	}

	return slots, hints, nil
}

// tableRow 是一行数据，键为表头列名（去除首尾空白）
type tableRow map[string]string

// parseTable 按表头列名提取一张表的所有数据行
func parseTable(doc *goquery.Document, selector, name string) ([]tableRow, error) {
	table := doc.Find(selector).First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("上游页面缺少%s表", name)
	}

	var columns []string
	table.Find("thead tr").First().Find("th").Each(func(_ int, th *goquery.Selection) {
		columns = append(columns, strings.TrimSpace(th.Text()))
	})
	if len(columns) == 0 {
		return nil, fmt.Errorf("%s表缺少表头行", name)
	}

	var rows []tableRow
	table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		row := make(tableRow, len(columns))
		tr.Find("td").Each(func(i int, td *goquery.Selection) {
			if i < len(columns) {
				row[columns[i]] = strings.TrimSpace(td.Text())
			}
		})
		// 缺失的单元格按空字符串处理，与列数不符不视为错误
		for _, c := range columns {
			if _, ok := row[c]; !ok {
				row[c] = ""
			}
		}
		rows = append(rows, row)
	})

	return rows, nil
}

func slotFromRow(row tableRow) (SlotRecord, error) {
	var slot SlotRecord

	position, err := strconv.Atoi(row["#"])
	if err != nil {
		return slot, fmt.Errorf("无法解析槽位序号 %q", row["#"])
	}

	status, err := parseSlotStatus(row["Status"])
	if err != nil {
		return slot, err
	}

	done, total, err := parseChecks(row["Checks"])
	if err != nil {
		return slot, err
	}

	lastActivity, err := parseLastActivity(row["Last Activity"])
	if err != nil {
		return slot, err
	}

	slot = SlotRecord{
		Position:     position,
		Name:         row["Name"],
		Game:         row["Game"],
		Status:       status,
		ChecksDone:   done,
		ChecksTotal:  total,
		LastActivity: lastActivity,
	}
	return slot, nil
}

func hintFromRow(row tableRow) (HintRecord, error) {
	return HintRecord{
		Finder:   row["Finder"],
		Receiver: row["Receiver"],
		Item:     row["Item"],
		Location: row["Location"],
		Entrance: row["Entrance"],
		// Found列非空即表示已找到（上游渲染一个勾号）
		Found: row["Found"] != "",
	}, nil
}

// parseSlotStatus 将上游的状态文本映射为内部状态值
func parseSlotStatus(s string) (SlotStatus, error) {
	switch s {
	case "Disconnected":
		return SlotStatusDisconnected, nil
	case "Connected":
		return SlotStatusConnected, nil
	case "Ready":
		return SlotStatusReady, nil
	case "Playing":
		return SlotStatusPlaying, nil
	case "Goal Completed":
		return SlotStatusGoalCompleted, nil
	default:
		return "", fmt.Errorf("未知的槽位状态 %q", s)
	}
}

// parseChecks 解析"done/total"形式的检查计数
func parseChecks(s string) (done, total int, err error) {
	left, right, ok := strings.Cut(s, "/")
	if !ok {
		return 0, 0, fmt.Errorf("无法解析检查计数 %q", s)
	}
	done, err = strconv.Atoi(strings.TrimSpace(left))
	if err != nil {
		return 0, 0, fmt.Errorf("无法解析检查计数 %q", s)
	}
	total, err = strconv.Atoi(strings.TrimSpace(right))
	if err != nil {
		return 0, 0, fmt.Errorf("无法解析检查计数 %q", s)
	}
	return done, total, nil
}

// parseLastActivity 解析Last Activity列。
// 原始值是一个秒数（可能带小数），"None"表示没有活动记录。
func parseLastActivity(s string) (*time.Duration, error) {
	if s == "None" || s == "" {
		return nil, nil
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("未知的活动时长格式 %q", s)
	}
	d := time.Duration(secs * float64(time.Second))
	return &d, nil
}
