package audit

import (
	"fmt"
	"reflect"
)

// FieldChange 记录单个字段变更前后的值
type FieldChange struct {
	Old interface{} `json:"old"`
	New interface{} `json:"new"`
}

// Changes 是字段名到变更的映射，只包含实际发生变化的字段
type Changes map[string]FieldChange

// Diff 对两个同类型结构体做字段级比较。
// 遍历全部导出字段（递归展开内嵌结构体），带 `audit:"-"` 标签的字段被跳过。
// before和after必须是同一结构体类型的值或指针。
func Diff(before, after interface{}) (Changes, error) {
	bv := reflect.Indirect(reflect.ValueOf(before))
	av := reflect.Indirect(reflect.ValueOf(after))

	if bv.Kind() != reflect.Struct || bv.Type() != av.Type() {
		return nil, fmt.Errorf("audit diff需要两个同类型的结构体，得到 %T 和 %T", before, after)
	}

	changes := make(Changes)
	diffStruct(bv, av, changes)
	return changes, nil
}

func diffStruct(bv, av reflect.Value, out Changes) {
	t := bv.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		if field.Tag.Get("audit") == "-" {
			continue
		}

		bf := bv.Field(i)
		af := av.Field(i)

		// 内嵌结构体展开到同一层，与GORM embedded列的布局一致
		if field.Anonymous && bf.Kind() == reflect.Struct {
			diffStruct(bf, af, out)
			continue
		}

		if !reflect.DeepEqual(bf.Interface(), af.Interface()) {
			out[fieldKey(field)] = FieldChange{
				Old: flatten(bf),
				New: flatten(af),
			}
		}
	}
}

// fieldKey 返回diff里使用的字段名，优先取json标签
func fieldKey(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" || tag == "-" {
		return field.Name
	}
	for i := 0; i < len(tag); i++ {
		if tag[i] == ',' {
			tag = tag[:i]
			break
		}
	}
	if tag == "" {
		return field.Name
	}
	return tag
}

// flatten 解引用指针，使diff里的值可以直接JSON序列化为标量
func flatten(v reflect.Value) interface{} {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	return v.Interface()
}
