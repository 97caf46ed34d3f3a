package planner

import "github.com/chlorophyll/mapper/mapping"

// buildMetas assigns each projected column a ColumnMeta, per spec §4.E step
// 8's four nullability sources:
//   - (a) schema-nullable: an SqlField whose GQLType is set and is not
//     non-null (`T`, not `T!`), per mapping.IsNonNull.
//   - (b) variant-field: set when the column was discovered at least once
//     while inside a Narrow (variantCols).
//   - (c) declared-nullable-attribute: an SqlAttribute mapping explicitly
//     marked Nullable.
//   - (d) outer-join-nullable: the column's table was introduced as the
//     child side of some join (childTables), so a LEFT JOIN may produce no
//     row.
func buildMetas(cat *mapping.Catalog, columns []mapping.ColumnRef, childTables, variantCols map[string]struct{}) map[string]ColumnMeta {
	declaredNullable := map[string]struct{}{}
	for _, om := range cat.AllObjectMappings() {
		for _, f := range om.Fields {
			switch ff := f.(type) {
			case mapping.SqlAttribute:
				if ff.Nullable {
					declaredNullable[ff.Col.Key()] = struct{}{}
				}
			case mapping.SqlField:
				if ff.GQLType != nil && !mapping.IsNonNull(ff.GQLType) {
					declaredNullable[ff.Col.Key()] = struct{}{}
				}
			}
		}
	}

	metas := make(map[string]ColumnMeta, len(columns))
	for _, c := range columns {
		key := c.Key()
		_, isVariant := variantCols[key]
		_, isDeclaredNullable := declaredNullable[key]
		_, isOuterJoin := childTables[c.Table]

		metas[key] = ColumnMeta{
			IsFromOuterJoin: isOuterJoin,
			Codec:           c.Codec,
			Nullable:        isVariant || isDeclaredNullable || isOuterJoin,
		}
	}
	return metas
}
